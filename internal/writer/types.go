// internal/writer/types.go
package writer

import "github.com/tamzrod/statpoll/internal/poller"

// StatusPlan places one device status block.
type StatusPlan struct {
	UnitID   uint8
	BaseSlot uint16
}

// TargetPlan is one report destination.
type TargetPlan struct {
	Endpoint     string
	Protocol     string
	UnitID       uint8
	ValueAddress uint16

	// Status is nil when the target did not opt in.
	Status *StatusPlan
}

// Plan is the fully-built write plan.
type Plan struct {
	DeviceName string
	Targets    []TargetPlan
}

// Writer writes extracted values into targets.
type Writer interface {
	Write(res poller.PollResult) error
}
