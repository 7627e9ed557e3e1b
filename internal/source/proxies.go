package source

import (
	"bufio"
	"os"
	"strings"
)

// LoadProxies reads a line-delimited proxy list. Addresses are trimmed and
// deduplicated with first-seen order preserved. A missing or unreadable
// file yields an empty list, never an error: the batch then runs unproxied.
func LoadProxies(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var proxies []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		addr := strings.TrimSpace(scanner.Text())
		if addr == "" || strings.HasPrefix(addr, "#") || seen[addr] {
			continue
		}
		seen[addr] = true
		proxies = append(proxies, addr)
	}
	return proxies
}
