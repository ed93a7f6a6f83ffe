package richpresence

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Discord IPC opcodes.
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
)

// Frames larger than this are treated as a corrupt stream.
const maxFrameSize = 64 * 1024

type handshake struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string      `json:"cmd"`
	Args  commandArgs `json:"args"`
	Nonce string      `json:"nonce"`
}

type commandArgs struct {
	PID int `json:"pid"`
	// Activity is sent as null to clear the presence.
	Activity *activityPayload `json:"activity"`
}

type activityPayload struct {
	Details    string             `json:"details,omitempty"`
	State      string             `json:"state,omitempty"`
	Timestamps *timestampsPayload `json:"timestamps,omitempty"`
	Assets     *assetsPayload     `json:"assets,omitempty"`
}

type timestampsPayload struct {
	// Start is in unix milliseconds.
	Start int64 `json:"start,omitempty"`
}

type assetsPayload struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

type response struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type errorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeFrame(w io.Writer, op uint32, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	buf := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], op)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(body)))
	copy(buf[8:], body)

	_, err = w.Write(buf)
	return err
}

func readFrame(r io.Reader) (uint32, []byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	op := binary.LittleEndian.Uint32(header[0:4])
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxFrameSize {
		return 0, nil, fmt.Errorf("ipc frame of %d bytes exceeds limit", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return op, body, nil
}

// decodeResponse turns a reply frame into an error when Discord rejected the
// request or closed the session.
func decodeResponse(op uint32, body []byte) (*response, error) {
	var res response
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("malformed ipc response: %w", err)
	}

	if op == opClose || res.Evt == "ERROR" {
		var data errorData
		_ = json.Unmarshal(res.Data, &data)
		if op == opClose {
			// Close frames carry code and message at the top level.
			_ = json.Unmarshal(body, &data)
		}
		return &res, fmt.Errorf("discord rejected request: code %d: %s", data.Code, data.Message)
	}

	return &res, nil
}
