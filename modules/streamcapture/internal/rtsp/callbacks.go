package rtsp

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Frame is a raw RGB buffer copied out of the appsink.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Width      int
	Height     int
	Data       []byte
}

// CallbackContext holds state needed by GStreamer callbacks
type CallbackContext struct {
	FrameChan     chan<- Frame
	FrameCounter  *uint64 // atomic
	BytesRead     *uint64 // atomic
	FramesDropped *uint64 // atomic
	Width         int
	Height        int
}

// OnNewSample copies the newest appsink buffer into a Frame and offers it
// to FrameChan without blocking. A bad sample is skipped, never fatal.
func OnNewSample(sink *app.Sink, ctx *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("rtsp: failed to pull sample from appsink, skipping frame")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("rtsp: failed to get buffer from sample, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("rtsp: empty buffer received")
		return gst.FlowOK
	}

	// GStreamer reuses the buffer
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	if want := ctx.Width * ctx.Height * 3; len(frameData) < want {
		slog.Warn("rtsp: short RGB buffer, skipping frame",
			"size_bytes", len(frameData),
			"expected_bytes", want,
		)
		return gst.FlowOK
	}

	seq := atomic.AddUint64(ctx.FrameCounter, 1)
	atomic.AddUint64(ctx.BytesRead, uint64(len(frameData)))

	offer(ctx, Frame{
		Seq:        seq,
		CapturedAt: time.Now(),
		Width:      ctx.Width,
		Height:     ctx.Height,
		Data:       frameData,
	})
	return gst.FlowOK
}

// offer sends without blocking, counting a drop when the channel is full.
func offer(ctx *CallbackContext, frame Frame) bool {
	select {
	case ctx.FrameChan <- frame:
		return true
	default:
		atomic.AddUint64(ctx.FramesDropped, 1)
		slog.Debug("rtsp: dropping frame, channel full", "seq", frame.Seq)
		return false
	}
}

// OnPadAdded links a dynamic rtspsrc pad to the depayloader sink pad.
func OnPadAdded(srcPad *gst.Pad, sinkElement *gst.Element) {
	sinkPad := sinkElement.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("rtsp: failed to get sink pad from rtph264depay")
		return
	}
	if sinkPad.IsLinked() {
		return
	}

	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("rtsp: failed to link pads",
			"src_pad", srcPad.GetName(),
			"sink_pad", sinkPad.GetName(),
			"ret", ret,
		)
		return
	}

	slog.Debug("rtsp: pads linked", "src_pad", srcPad.GetName())
}
