// Package streamcapture defines the camera frame source contract: its
// configuration, statistics and the Provider interface. It has no cgo
// dependency; the GStreamer implementation lives in streamcapture/gstrtsp.
//
// The gstrtsp pipeline:
//
//	rtspsrc → rtph264depay → avdec_h264 → videoconvert → videoscale →
//	capsfilter(RGB,W,H) → appsink(max-buffers=1, drop=true)
//
// The appsink keeps only the newest buffer, so a slow consumer never builds
// a backlog inside GStreamer. The output channel is small and lossy for the
// same reason. Pipeline errors are classified (network, codec, auth) and the
// pipeline is rebuilt with exponential backoff.
//
// Frame timestamps are microseconds on the stream's monotonic clock, counted
// from Start. They are always positive.
package streamcapture
