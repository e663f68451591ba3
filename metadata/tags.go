package metadata

import (
	"strings"
)

// TagName is the struct tag key read by the builder.
const TagName = "wire"

// wireTag is the parsed form of one `wire` struct tag.
type wireTag struct {
	// name is the explicit wire key, empty when the naming policy derives it.
	name string
	// skip excludes the field entirely (`wire:"-"`).
	skip      bool
	required  bool
	encrypted bool
	// unknown collects unrecognized options for a validator warning.
	unknown []string
}

// parseWireTag parses `wire:"<name>[,required][,encrypted]"`. A missing tag
// behaves like `wire:""`: the field participates with a derived name.
func parseWireTag(tag string) wireTag {
	if tag == "-" {
		return wireTag{skip: true}
	}
	parts := strings.Split(tag, ",")
	wt := wireTag{name: strings.TrimSpace(parts[0])}
	for _, opt := range parts[1:] {
		switch strings.TrimSpace(opt) {
		case "required":
			wt.required = true
		case "encrypted":
			wt.encrypted = true
		case "":
		default:
			wt.unknown = append(wt.unknown, strings.TrimSpace(opt))
		}
	}
	return wt
}
