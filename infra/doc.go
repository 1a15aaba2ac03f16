// Package infra contains technical adapters such as task stores, metrics
// sinks, the MQTT notifier and the Sentry monitor. These packages should
// depend only on the interfaces defined in the core packages.
package infra
