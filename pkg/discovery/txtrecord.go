package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records an authority advertises.
func EncodeTXT(info *AuthorityInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyVersion] = strconv.Itoa(versionOf(info))
	txt[TXTKeyPath] = pathOf(info)

	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}
	return txt
}

// DecodeTXT parses TXT records from a browsed authority.
func DecodeTXT(txt TXTRecordMap) (*AuthorityInfo, error) {
	info := &AuthorityInfo{}

	vStr, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	v, err := strconv.Atoi(vStr)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q", ErrInvalidTXTRecord, vStr)
	}
	if v != ProtocolVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	info.Version = v

	info.Path = txt[TXTKeyPath]
	if info.Path == "" {
		info.Path = DefaultPath
	}
	if !strings.HasPrefix(info.Path, "/") {
		return nil, fmt.Errorf("%w: path %q", ErrInvalidTXTRecord, info.Path)
	}

	info.Name = txt[TXTKeyName]
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

func versionOf(info *AuthorityInfo) int {
	if info.Version == 0 {
		return ProtocolVersion
	}
	return info.Version
}

func pathOf(info *AuthorityInfo) string {
	if info.Path == "" {
		return DefaultPath
	}
	return info.Path
}
