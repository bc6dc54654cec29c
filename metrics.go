// Diagnostic counters, surfaced the way the teacher surfaces session
// state: through LogDebugSession rather than a dedicated exporter, since
// this server carries no metrics dependency of its own.

package main

import "strconv"

// SessionMetrics is a point-in-time snapshot of a session's loss/recovery
// counters, useful for postmortems on a dropped stream.
type SessionMetrics struct {
	DroppedChunks       uint64
	InvalidFreshHeaders uint64
	RestartsFromType0   uint64
	DroppedNonKeyframes uint64
	DroppedNewTags      uint64
	BitsPerSecond       uint64
}

func (s *Session) snapshotMetrics(demux *ChunkDemuxer) SessionMetrics {
	s.Queue.mu.Lock()
	dropped, newTags := s.Queue.DroppedNonKeyframes, s.Queue.DroppedNewTags
	s.Queue.mu.Unlock()

	return SessionMetrics{
		DroppedChunks:       demux.DroppedChunks,
		InvalidFreshHeaders: demux.InvalidFreshHeaders,
		RestartsFromType0:   demux.RestartsFromType0,
		DroppedNonKeyframes: dropped,
		DroppedNewTags:      newTags,
		BitsPerSecond:       s.bitRate.bitsPerSecond(),
	}
}

// logMetrics writes the current counters to the debug log. Called when a
// session ends, so an operator reading logs can tell whether the stream
// suffered chunk loss or queue backpressure.
func (s *Session) logMetrics(demux *ChunkDemuxer) {
	m := s.snapshotMetrics(demux)
	LogDebugSession(s.ID, s.RemoteAddr, "metrics: dropped_chunks="+strconv.FormatUint(m.DroppedChunks, 10)+
		" invalid_fresh_headers="+strconv.FormatUint(m.InvalidFreshHeaders, 10)+
		" restarts_from_type0="+strconv.FormatUint(m.RestartsFromType0, 10)+
		" dropped_non_keyframes="+strconv.FormatUint(m.DroppedNonKeyframes, 10)+
		" dropped_new_tags="+strconv.FormatUint(m.DroppedNewTags, 10)+
		" bits_per_second="+strconv.FormatUint(m.BitsPerSecond, 10))
}
