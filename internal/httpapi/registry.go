package httpapi

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/recorder"
	"github.com/dgnsrekt/webreplay/pkg/replayer"
)

type sessionKind string

const (
	kindRecord sessionKind = "record"
	kindReplay sessionKind = "replay"
)

// session is one Recorder or Replayer the daemon is holding open on
// behalf of an HTTP caller.
type session struct {
	id       string
	kind     sessionKind
	recorder *recorder.Recorder
	replayer *replayer.Replayer
	stream   bool
	broker   *broker // non-nil only for stream:true recording sessions

	mu            sync.Mutex
	lastRecording *action.Recording
}

func (s *session) setLastRecording(rec action.Recording) {
	s.mu.Lock()
	s.lastRecording = &rec
	s.mu.Unlock()
}

func (s *session) getLastRecording() *action.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRecording
}

// publish is a no-op for sessions that weren't opened with stream:true.
func (s *session) publish(feed string, payload any) {
	if s.broker == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("httpapi: dropping unmarshalable event", "feed", feed, "error", err)
		return
	}
	s.broker.publish(sseEvent{Feed: feed, Payload: string(data)})
}

// registry holds every live session, keyed by a generated session ID.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*session)}
}

func (r *registry) putRecorder(rec *recorder.Recorder, stream bool) *session {
	s := &session{id: uuid.NewString(), kind: kindRecord, recorder: rec, stream: stream}
	if stream {
		s.broker = newBroker()
	}
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

func (r *registry) putReplayer(rep *replayer.Replayer) *session {
	s := &session{id: uuid.NewString(), kind: kindReplay, replayer: rep}
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

func (r *registry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *registry) delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
