package spool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// MaxHeaderSize caps the "type,id" line, excluding the newline.
	MaxHeaderSize = 1 << 10
	// MaxPayloadSize caps the JSON payload following the header line.
	MaxPayloadSize = 1 << 20
)

// Marshal encodes a record body. Empty data produces no payload section.
func Marshal(taskType, id string, data map[string]any) ([]byte, error) {
	if err := validateHeader(taskType, id); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(taskType)
	buf.WriteByte(',')
	buf.WriteString(id)
	buf.WriteByte('\n')

	if buf.Len()-1 > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	if len(data) > 0 {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("spool: marshal payload: %w", err)
		}
		if len(payload) > MaxPayloadSize {
			return nil, ErrPayloadTooLarge
		}
		buf.Write(payload)
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes a record body produced by Marshal. Numbers in the
// payload decode as json.Number.
func Unmarshal(body []byte) (taskType, id string, data map[string]any, err error) {
	header, payload, found := bytes.Cut(body, []byte{'\n'})
	if len(header) > MaxHeaderSize {
		return "", "", nil, ErrHeaderTooLarge
	}
	if found && len(payload) > MaxPayloadSize {
		return "", "", nil, ErrPayloadTooLarge
	}

	taskType, id, _ = strings.Cut(string(header), ",")
	if taskType == "" {
		return "", "", nil, ErrMissingType
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return taskType, id, nil, nil
	}

	data, err = decodePayload(payload)
	if err != nil {
		return "", "", nil, err
	}
	return taskType, id, data, nil
}

// decodePayload keeps numbers as json.Number so integers beyond 2^53 and
// their literal form survive a round trip.
func decodePayload(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, ErrInvalidPayload
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrInvalidPayload
	}
	return data, nil
}

// readBody reads at most one byte past the largest legal record so that
// oversized records are detected without reading them in full.
func readBody(r io.Reader) ([]byte, error) {
	const limit = MaxHeaderSize + 1 + MaxPayloadSize
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if len(body) > limit {
		if i := bytes.IndexByte(body, '\n'); i < 0 || i > MaxHeaderSize {
			return nil, ErrHeaderTooLarge
		}
		return nil, ErrPayloadTooLarge
	}
	return body, nil
}

func validateHeader(taskType, id string) error {
	switch {
	case taskType == "":
		return ErrMissingType
	case strings.ContainsAny(taskType, ",\r\n"):
		return ErrInvalidType
	case strings.ContainsAny(id, "\r\n"):
		return ErrInvalidID
	}
	return nil
}
