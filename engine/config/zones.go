package config

import "fmt"

// AllZones are the hotel zones selected by "all"
var AllZones = []string{"com", "de", "fi", "fr", "it", "es", "nl", "com.br", "com.tr"}

// ParseZones expands a --tld value into the zones it names
func ParseZones(tld string) ([]string, error) {
	if tld == "all" {
		return append([]string(nil), AllZones...), nil
	}
	if contains(AllZones, tld) {
		return []string{tld}, nil
	}
	return nil, fmt.Errorf("unknown zone %q: want all or one of %v", tld, AllZones)
}
