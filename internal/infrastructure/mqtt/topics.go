package mqtt

import "fmt"

// TopicPrefix is the root namespace for all HomeIQ MQTT topics.
const TopicPrefix = "homeiq"

// Topics provides type-safe MQTT topic construction.
//
// The zero value is ready to use:
//
//	topic := mqtt.Topics{}.ValidationResult("passed")
//	// "homeiq/validation/passed"
//
// Topic structure:
//
//	homeiq/system/status            - service online/offline (retained, LWT)
//	homeiq/validation/{result}      - validation outcome events ("passed" or "failed")
type Topics struct{}

// SystemStatus returns the service status topic.
//
// Messages on this topic are retained so new subscribers immediately
// learn whether the validator is online. The broker publishes the LWT
// here on unexpected disconnect.
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}

// ValidationResult returns the topic for a validation outcome.
//
// Parameters:
//   - result: "passed" or "failed"
//
// Subscribers can use homeiq/validation/+ to receive all outcomes,
// or subscribe to a single result to watch only failures.
func (Topics) ValidationResult(result string) string {
	return fmt.Sprintf("%s/validation/%s", TopicPrefix, result)
}
