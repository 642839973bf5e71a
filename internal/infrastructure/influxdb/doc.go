// Package influxdb records tint transition telemetry in InfluxDB.
//
// Each committed transition becomes a point in the "tint_level"
// measurement tagged by panel and group, giving facilities teams a
// time-series view of glass behaviour (dwell patterns, per-facade
// usage, manual-override frequency) without touching the control
// database.
//
// # Data model
//
//	measurement: tint_level
//	tags:        panel_id, group_id (when set)
//	fields:      level (int)
//	timestamp:   the panel's last-change time
//
// # Write path
//
// Writes go through the non-blocking batched write API: points are
// buffered in memory and flushed on size or interval, so a slow or
// unreachable InfluxDB never stalls a tint command. Asynchronous write
// failures surface through SetOnError; telemetry is best-effort and a
// disconnected client drops points silently.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	} else if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	broadcaster.AddSink(influxdb.NewTransitionRecorder(client))
package influxdb
