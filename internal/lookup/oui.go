package lookup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/projectdiscovery/gcache"
)

// VendorTable maps a MAC address to the vendor registered for its prefix
type VendorTable interface {
	Lookup(mac string) (string, bool)
}

// prefix lengths in hex digits, longest first: MA-S (36 bit), MA-M (28 bit), MA-L (24 bit)
var prefixNibbles = []int{9, 7, 6}

// OUITable is a VendorTable backed by IEEE / Wireshark prefix data
type OUITable struct {
	mu       sync.RWMutex
	prefixes map[int]map[string]string // nibble count -> hex prefix -> vendor
	cache    gcache.Cache[string, string]
}

// NewOUITable creates a table seeded with the built-in prefixes.
// cacheSize bounds the number of memoized MAC lookups.
func NewOUITable(cacheSize int) *OUITable {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	t := &OUITable{
		prefixes: make(map[int]map[string]string),
		cache:    gcache.New[string, string](cacheSize).LRU().Build(),
	}
	for prefix, vendor := range builtinOUI {
		t.add(prefix, 24, vendor)
	}
	return t
}

// LoadFile merges prefixes from an IEEE oui.txt or Wireshark manuf file
func (t *OUITable) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open oui file: %w", err)
	}
	defer f.Close()
	return t.Load(f)
}

// Load merges prefixes read from r and returns how many were added.
// Recognized lines:
//
//	00-00-0C   (hex)		Cisco Systems, Inc          (IEEE oui.txt)
//	00:00:0C	Cisco	Cisco Systems, Inc          (Wireshark manuf)
//	00:1B:C5:00:00:00/36	Convergi	Converging Systems Inc.
func (t *OUITable) Load(r io.Reader) (int, error) {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		prefix, bits, vendor, ok := parseOUILine(line)
		if !ok {
			continue
		}
		if t.add(prefix, bits, vendor) {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("read oui data: %w", err)
	}

	// Earlier answers may be shadowed by the new data
	t.cache.Purge()
	return added, nil
}

func parseOUILine(line string) (prefix string, bits int, vendor string, ok bool) {
	if idx := strings.Index(line, "(hex)"); idx > 0 {
		prefix = strings.TrimSpace(line[:idx])
		vendor = strings.TrimSpace(line[idx+len("(hex)"):])
		return prefix, 24, vendor, prefix != "" && vendor != ""
	}

	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return "", 0, "", false
	}
	prefix = strings.TrimSpace(fields[0])
	vendor = strings.TrimSpace(fields[len(fields)-1])
	if vendor == "" {
		vendor = strings.TrimSpace(fields[1])
	}

	bits = 24
	if slash := strings.IndexByte(prefix, '/'); slash > 0 {
		n, err := strconv.Atoi(prefix[slash+1:])
		if err != nil {
			return "", 0, "", false
		}
		bits = n
		prefix = prefix[:slash]
	}
	return prefix, bits, vendor, vendor != ""
}

func (t *OUITable) add(prefix string, bits int, vendor string) bool {
	hex := hexDigits(prefix)
	nibbles := bits / 4
	if bits%4 != 0 || len(hex) < nibbles || !knownPrefixLen(nibbles) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.prefixes[nibbles]
	if !ok {
		m = make(map[string]string)
		t.prefixes[nibbles] = m
	}
	m[hex[:nibbles]] = vendor
	return true
}

// Lookup returns the vendor for mac, trying the longest registered prefix first
func (t *OUITable) Lookup(mac string) (string, bool) {
	hex := hexDigits(mac)
	if len(hex) != 12 {
		return "", false
	}

	if vendor, err := t.cache.Get(hex); err == nil {
		return vendor, vendor != ""
	}

	vendor := t.find(hex)
	_ = t.cache.Set(hex, vendor)
	return vendor, vendor != ""
}

func (t *OUITable) find(hex string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, n := range prefixNibbles {
		if vendor, ok := t.prefixes[n][hex[:n]]; ok {
			return vendor
		}
	}
	return ""
}

// Len returns the number of registered prefixes
func (t *OUITable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	total := 0
	for _, m := range t.prefixes {
		total += len(m)
	}
	return total
}

func knownPrefixLen(nibbles int) bool {
	for _, n := range prefixNibbles {
		if n == nibbles {
			return true
		}
	}
	return false
}

// hexDigits strips separators and upper-cases a MAC or prefix
func hexDigits(s string) string {
	var b strings.Builder
	b.Grow(12)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'F':
			b.WriteRune(r)
		case r >= 'a' && r <= 'f':
			b.WriteRune(r - 'a' + 'A')
		case r == ':' || r == '-' || r == '.':
		default:
			return ""
		}
	}
	return b.String()
}

// builtinOUI covers common virtualization and consumer prefixes so lookups
// work without an external file
var builtinOUI = map[string]string{
	"00:50:56": "VMware, Inc.",
	"00:0C:29": "VMware, Inc.",
	"00:1C:42": "Parallels, Inc.",
	"08:00:27": "PCS Systemtechnik GmbH",
	"52:54:00": "QEMU virtual NIC",
	"00:15:5D": "Microsoft Corporation",
	"00:1C:B3": "Apple, Inc.",
	"3C:22:FB": "Apple, Inc.",
	"F0:18:98": "Apple, Inc.",
	"A0:F3:C1": "TP-LINK TECHNOLOGIES CO.,LTD.",
	"00:40:96": "Cisco Systems, Inc",
	"00:18:0A": "Cisco Meraki",
	"B8:27:EB": "Raspberry Pi Foundation",
	"DC:A6:32": "Raspberry Pi Trading Ltd",
	"44:19:B6": "Hangzhou Hikvision Digital Technology Co.,Ltd.",
	"00:1B:21": "Intel Corporate",
	"00:14:22": "Dell Inc.",
	"3C:D9:2B": "Hewlett Packard",
	"00:11:32": "Synology Incorporated",
	"24:5E:BE": "QNAP Systems, Inc.",
	"74:83:C2": "Ubiquiti Inc",
	"E4:5F:01": "Raspberry Pi Trading Ltd",
}
