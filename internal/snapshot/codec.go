package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec selects the payload encoding for persisted snapshots.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// Envelope layout: magic, format version, codec id, payload.
// The header makes stored payloads self-describing so the codec can change
// between writes without invalidating live snapshots.
const (
	envelopeMagic   = "LXSN"
	envelopeVersion = byte(1)
	codecIDJSON     = byte(1)
	codecIDMsgpack  = byte(2)
)

// ParseCodec normalizes and validates codec input.
func ParseCodec(value string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(value))) {
	case CodecJSON, "":
		return CodecJSON, nil
	case CodecMsgpack:
		return CodecMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported snapshot codec: %s", value)
	}
}

// Encode serializes a snapshot with the given codec, prefixed by the
// envelope header.
func Encode(codec Codec, snap *Snapshot) ([]byte, error) {
	var payload []byte
	var id byte
	var err error

	switch codec {
	case CodecJSON:
		payload, err = json.Marshal(snap)
		id = codecIDJSON
	case CodecMsgpack:
		payload, err = encodeMsgpack(snap)
		id = codecIDMsgpack
	default:
		return nil, fmt.Errorf("unsupported snapshot codec: %s", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	out := make([]byte, 0, len(envelopeMagic)+2+len(payload))
	out = append(out, envelopeMagic...)
	out = append(out, envelopeVersion, id)
	out = append(out, payload...)
	return out, nil
}

// Decode deserializes a snapshot, detecting the codec from the envelope.
// Field values are normalized to the engine's value domain (nil, bool, int64,
// float64, string) regardless of which codec produced them.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < len(envelopeMagic)+2 || string(data[:len(envelopeMagic)]) != envelopeMagic {
		return nil, fmt.Errorf("decode snapshot: missing envelope header")
	}
	version := data[len(envelopeMagic)]
	if version != envelopeVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported format version %d", version)
	}
	id := data[len(envelopeMagic)+1]
	payload := data[len(envelopeMagic)+2:]

	snap := &Snapshot{}
	switch id {
	case codecIDJSON:
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
	case codecIDMsgpack:
		if err := decodeMsgpack(payload, snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode snapshot: unsupported codec id %d", id)
	}

	normalizeSnapshot(snap)
	return snap, nil
}

// encodeMsgpack reuses the document's json tags so both codecs agree on
// field names.
func encodeMsgpack(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMsgpack(payload []byte, snap *Snapshot) error {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.SetCustomStructTag("json")
	return dec.Decode(snap)
}

func normalizeSnapshot(snap *Snapshot) {
	snap.Selection.Value = normalizeValue(snap.Selection.Value)
	for i := range snap.PrimaryRows {
		normalizeFields(snap.PrimaryRows[i].Fields)
	}
	for key, group := range snap.RelatedRows {
		for i := range group.Rows {
			normalizeFields(group.Rows[i].Fields)
		}
		snap.RelatedRows[key] = group
	}
	for key, group := range snap.ParentRows {
		for i := range group.Entries {
			normalizeFields(group.Entries[i].Data)
		}
		snap.ParentRows[key] = group
	}
	for i := range snap.CascadedRows {
		normalizeFields(snap.CascadedRows[i].Fields)
	}
}

func normalizeFields(fields map[string]any) {
	for k, v := range fields {
		fields[k] = normalizeValue(v)
	}
}

// normalizeValue collapses the codec-specific wire types into the value
// domain the rest of the engine works with.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int64, float64, string:
		return val
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	default:
		return val
	}
}
