// Package loader reads a declarative inventory file of ranges and owner
// assignments and applies it to the stores.
//
//	version: "1"
//	ranges:
//	  - cidr: 192.168.1.0/24
//	  - cidr: 10.0.5.0/24
//	    active: false
//	owners:
//	  users:
//	    alice-laptop: [192.168.1.10]
//	  servers:
//	    db-1: [192.168.1.20, 192.168.1.21]
package loader

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ipscope/internal/domain"
	"ipscope/internal/logger"
)

// InventoryYAML is the file structure
type InventoryYAML struct {
	Version string      `yaml:"version"`
	Ranges  []RangeYAML `yaml:"ranges,omitempty"`
	Owners  *OwnersYAML `yaml:"owners,omitempty"`
}

// RangeYAML is one range entry; ranges are active unless stated otherwise
type RangeYAML struct {
	CIDR   string `yaml:"cidr"`
	Active *bool  `yaml:"active,omitempty"`
}

// OwnersYAML maps owner names to the addresses they hold, per owner type
type OwnersYAML struct {
	Users   map[string][]string `yaml:"users,omitempty"`
	Devices map[string][]string `yaml:"devices,omitempty"`
	Servers map[string][]string `yaml:"servers,omitempty"`
}

// Inventory is a validated inventory file
type Inventory struct {
	Ranges      []domain.AddressRange
	Assignments []domain.OwnershipAssignment
}

// LoadFile reads and validates an inventory file
func LoadFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return Parse(data)
}

// Parse validates inventory YAML. Every problem is reported, not just the first.
func Parse(data []byte) (*Inventory, error) {
	var y InventoryYAML
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}

	inv := &Inventory{}
	var errs []error

	seenRanges := make(map[string]bool)
	for i, r := range y.Ranges {
		norm, err := domain.NormalizeRange(r.CIDR)
		if err != nil {
			errs = append(errs, fmt.Errorf("ranges[%d]: %w", i, err))
			continue
		}
		if seenRanges[norm] {
			errs = append(errs, fmt.Errorf("ranges[%d]: duplicate range %s", i, norm))
			continue
		}
		seenRanges[norm] = true

		active := true
		if r.Active != nil {
			active = *r.Active
		}
		inv.Ranges = append(inv.Ranges, domain.AddressRange{CIDR: norm, Active: active})
	}

	if y.Owners != nil {
		owned := make(map[string]string)
		groups := []struct {
			kind   domain.OwnerType
			owners map[string][]string
		}{
			{domain.OwnerUser, y.Owners.Users},
			{domain.OwnerDevice, y.Owners.Devices},
			{domain.OwnerServer, y.Owners.Servers},
		}
		for _, g := range groups {
			for _, name := range sortedKeys(g.owners) {
				for _, raw := range g.owners[name] {
					addr, err := netip.ParseAddr(raw)
					if err != nil {
						errs = append(errs, fmt.Errorf("owners.%ss.%s: %w: invalid address %q", g.kind, name, domain.ErrInvalidArgument, raw))
						continue
					}
					key := addr.Unmap().String()
					if prev, ok := owned[key]; ok {
						errs = append(errs, fmt.Errorf("owners.%ss.%s: %s already assigned to %s", g.kind, name, key, prev))
						continue
					}
					owned[key] = name
					inv.Assignments = append(inv.Assignments, domain.OwnershipAssignment{
						Address:   key,
						OwnerType: g.kind,
						OwnerName: name,
					})
				}
			}
		}
		sort.SliceStable(inv.Assignments, func(i, j int) bool {
			return domain.AddressLess(inv.Assignments[i].Address, inv.Assignments[j].Address)
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return inv, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RangeCreator creates ranges
type RangeCreator interface {
	Create(ctx context.Context, cidr string, active bool) (*domain.AddressRange, error)
}

// Assigner upserts ownership assignments
type Assigner interface {
	Assign(ctx context.Context, a domain.OwnershipAssignment) error
}

// Result counts what Apply changed
type Result struct {
	RangesCreated int
	RangesKept    int
	Assigned      int
}

// Apply creates missing ranges and upserts every assignment. Ranges already
// stored are left as they are, so an operator's later edits survive a reload.
func Apply(ctx context.Context, inv *Inventory, ranges RangeCreator, owners Assigner, log logger.Logger) (Result, error) {
	var res Result

	for _, r := range inv.Ranges {
		_, err := ranges.Create(ctx, r.CIDR, r.Active)
		switch {
		case err == nil:
			res.RangesCreated++
		case errors.Is(err, domain.ErrAlreadyExists):
			res.RangesKept++
		default:
			return res, fmt.Errorf("create range %s: %w", r.CIDR, err)
		}
	}

	for _, a := range inv.Assignments {
		if err := owners.Assign(ctx, a); err != nil {
			return res, fmt.Errorf("assign %s: %w", a.Address, err)
		}
		res.Assigned++
	}

	log.Info().
		Int("ranges_created", res.RangesCreated).
		Int("ranges_kept", res.RangesKept).
		Int("assigned", res.Assigned).
		Msg("Inventory applied")
	return res, nil
}
