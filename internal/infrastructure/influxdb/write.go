package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature mirrors a room temperature sample.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteTemperature("Lounge", 21.5)
func (c *Client) WriteTemperature(room string, tempC float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{"room": room},
		map[string]interface{}{"celsius": tempC},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMotion mirrors a motion sensor state.
//
// Recorded as 0/1 so downstream dashboards can sum occupancy over time.
func (c *Client) WriteMotion(room string, present bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if present {
		value = 1
	}

	point := write.NewPoint(
		"motion",
		map[string]string{"room": room},
		map[string]interface{}{"present": value},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePlugPower mirrors a smart plug's reported power draw.
func (c *Client) WritePlugPower(plug string, watts float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"plug_power",
		map[string]string{"plug": plug},
		map[string]interface{}{"watts": watts},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("thermostat",
//	    map[string]string{"mode": "heat"},
//	    map[string]interface{}{"ambient": 19.8, "target": 21.0})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
