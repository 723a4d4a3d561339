package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/render"
)

// FrameEvent is one published analysis frame with its textual results list.
type FrameEvent struct {
	Frame *face.AnalysisFrame `json:"frame"`
	Lines []string            `json:"lines"`
}

func newFrameEvent(frame *face.AnalysisFrame) FrameEvent {
	return FrameEvent{Frame: frame, Lines: render.ResultsList(frame, frame.Config)}
}

// subscribeFrames registers a buffered listener on the analyzer. Frames are
// dropped for a listener whose buffer is full so a slow client never stalls a pass.
func subscribeFrames(a *analyzer.Analyzer) (<-chan *face.AnalysisFrame, func()) {
	ch := make(chan *face.AnalysisFrame, constants.EventChannelBuffer)
	unsubscribe := a.Subscribe(func(frame *face.AnalysisFrame) {
		select {
		case ch <- frame:
		default:
			// Listener buffer full, skip.
		}
	})
	return ch, unsubscribe
}

// setupSSEConnection sets the event-stream headers.
// Returns false after writing an error response when streaming is unsupported.
func setupSSEConnection(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return flusher, true
}

// sendSSEEvent sends a Server-Sent Event with JSON data.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// streamSSEEvents sends the initial status and then every published frame
// until the client disconnects.
func streamSSEEvents(w http.ResponseWriter, r *http.Request, a *analyzer.Analyzer, initial any) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	frames, unsubscribe := subscribeFrames(a)
	defer unsubscribe()

	sendSSEEvent(w, flusher, "status", initial)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-frames:
			sendSSEEvent(w, flusher, "frame", newFrameEvent(frame))
		}
	}
}
