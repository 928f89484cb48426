package usecase

import (
	"errors"
	"fmt"
	"io"
	"os"

	"kothanote/internal/domain"
	"kothanote/internal/ports"
)

// pumpAudioChunks feeds microphone bytes into the recognition stream until
// the capture ends or either side fails.
func pumpAudioChunks(
	mic ports.AudioSession,
	stream ports.RecognitionSession,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)
	// Closing the send side lets the engine flush pending results and end
	// the session when the microphone stops on its own.
	defer func() { _ = stream.CloseSend() }()

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := mic.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				// The session closing under us is the normal stop path.
				if !errors.Is(sendErr, ports.ErrSessionClosed) {
					events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream audio: %v", sendErr))
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}
