// Package mqtt provides MQTT event publishing for HomeIQ Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Validation outcome publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// HomeIQ is publish-only on MQTT. After each validation run the
// outcome is announced on homeiq/validation/{passed,failed} so
// dashboards and downstream automation tooling can react without
// polling the HTTP API. The service never subscribes; all inbound
// traffic arrives over HTTP.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Event payloads carry a document hash, never automation contents
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.PublishValidation(mqtt.ValidationEvent{
//	    DocumentHash: hash,
//	    Valid:        result.Valid,
//	    Score:        result.Score,
//	})
package mqtt
