// Package inventory provides snapshot clients for the two external
// collaborators the validation pipeline consults: the entity/area
// directory and the service catalog.
//
// Both collaborators are best-effort. Each fetch is a single request
// with a short timeout and no retries, because the validator's answer
// is advisory and must return promptly. Callers
// treat a failed fetch as "collaborator unavailable" and degrade
// gracefully rather than failing the validation call.
package inventory
