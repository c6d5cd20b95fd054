package capture

import (
	"context"

	"github.com/careerboost/interviewlab/internal/model"
)

// remoteTrack is a placeholder for a track held by the remote client.
type remoteTrack struct {
	kind    string
	stopped bool
}

func (t *remoteTrack) Kind() string { return t.kind }
func (t *remoteTrack) Stop()        { t.stopped = true }

type remoteStream struct {
	tracks []Track
}

func (s *remoteStream) Tracks() []Track { return s.tracks }

// RemoteDevice stands in for a microphone/camera held by the browser client:
// the actual hardware lives on the other end of the connection and recorded
// data arrives as pushed chunks. Acquire always succeeds and yields a stream
// with one audio track, plus a video track in video mode.
type RemoteDevice struct{}

// Acquire implements Device.
func (RemoteDevice) Acquire(_ context.Context, kind model.MediaKind) (Stream, error) {
	tracks := []Track{&remoteTrack{kind: "audio"}}
	if kind == model.MediaVideo {
		tracks = append(tracks, &remoteTrack{kind: "video"})
	}
	return &remoteStream{tracks: tracks}, nil
}
