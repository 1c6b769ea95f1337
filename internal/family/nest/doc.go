// Package nest reads the thermostat through the vendor's cloud
// device-management API using a refresh-token OAuth flow. The vendor
// rate-limits hard, so quota rejections are classified separately and
// never retried locally.
package nest
