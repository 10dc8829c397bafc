package usecase

import (
	"sync"

	"tolk/internal/domain"
	"tolk/internal/ports"
)

type activeSession struct {
	device   ports.CaptureDevice
	analyzer ports.Analyzer

	bufMu     sync.Mutex
	buffered  [][]byte
	mediaType string

	collectDone chan struct{}
}

func (s *activeSession) append(chunk domain.Chunk) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	s.buffered = append(s.buffered, chunk.Data)
	if s.mediaType == "" {
		s.mediaType = chunk.MediaType
	}
}

// payload concatenates the buffered chunks in emission order.
func (s *activeSession) payload() domain.Payload {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	if len(s.buffered) == 0 {
		return domain.Payload{}
	}

	total := 0
	for _, chunk := range s.buffered {
		total += len(chunk)
	}
	data := make([]byte, 0, total)
	for _, chunk := range s.buffered {
		data = append(data, chunk...)
	}

	mediaType := s.mediaType
	if mediaType == "" {
		mediaType = s.device.MediaType()
	}
	return domain.Payload{Data: data, MediaType: mediaType}
}
