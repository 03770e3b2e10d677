package models

import "fmt"

// TargetKind identifies which chat platform operation delivers to a target
type TargetKind string

const (
	TargetChannel       TargetKind = "channel"
	TargetUser          TargetKind = "user"
	TargetChannelByName TargetKind = "channel_by_name"
	TargetUnresolved    TargetKind = "unresolved"
)

// ResolvedTarget is the outcome of alias resolution. ID is set for channel
// and user targets, Name for channel-by-name targets.
type ResolvedTarget struct {
	Kind TargetKind
	ID   string
	Name string
}

func ChannelTarget(id string) ResolvedTarget {
	return ResolvedTarget{Kind: TargetChannel, ID: id}
}

func UserTarget(id string) ResolvedTarget {
	return ResolvedTarget{Kind: TargetUser, ID: id}
}

func ChannelNameTarget(name string) ResolvedTarget {
	return ResolvedTarget{Kind: TargetChannelByName, Name: name}
}

func UnresolvedTarget() ResolvedTarget {
	return ResolvedTarget{Kind: TargetUnresolved}
}

// IsResolved reports whether the target can be delivered to
func (t ResolvedTarget) IsResolved() bool {
	return t.Kind != TargetUnresolved && t.Kind != ""
}

func (t ResolvedTarget) String() string {
	switch t.Kind {
	case TargetChannel, TargetUser:
		return fmt.Sprintf("%s:%s", t.Kind, t.ID)
	case TargetChannelByName:
		return fmt.Sprintf("%s:%s", t.Kind, t.Name)
	default:
		return string(TargetUnresolved)
	}
}
