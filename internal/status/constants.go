// internal/status/constants.go
package status

// Device Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of logical slots per device.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the poller health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code (see Code* below).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the poller has been in error.
const SlotSecondsInError = 2

// SlotConsecutiveFailures holds the number of failed cycles since the last good one.
const SlotConsecutiveFailures = 3

// ---- RESERVED RANGE ----

// Slots 4–10 are reserved for future use.
const SlotReservedStart = 4
const SlotReservedEnd = 10

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first cycle.
const HealthUnknown uint16 = 0

// HealthOK means the last cycle produced a value.
const HealthOK uint16 = 1

// HealthError means the last cycle failed.
const HealthError uint16 = 2

// ---- ERROR CODES ----

const (
	CodeNone         uint16 = 0
	CodeGeneric      uint16 = 1
	CodeTransport    uint16 = 2
	CodeHTTPStatus   uint16 = 3
	CodeParseFailed  uint16 = 4
	CodePathMissing  uint16 = 5
	CodeTypeMismatch uint16 = 6
	CodeBadValue     uint16 = 7
	CodeLinkDown     uint16 = 8
)
