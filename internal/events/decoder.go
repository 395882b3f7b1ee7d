package events

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/inc4/meme-land-backend/internal/codec"
	"github.com/inc4/meme-land-backend/internal/domain"
	"github.com/inc4/meme-land-backend/internal/observability"
)

// programDataPrefix marks log lines carrying a base64 event payload.
const programDataPrefix = "Program data: "

// discriminatorLen is the fixed byte prefix identifying the event schema.
const discriminatorLen = 8

// DecodeError reports a payload that matched a known discriminator but did
// not conform to the event schema. The malformed record is dropped; the rest
// of the batch is unaffected.
type DecodeError struct {
	Event string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Event, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Discriminator derives the 8-byte schema prefix for an event name.
func Discriminator(name string) [discriminatorLen]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [discriminatorLen]byte
	copy(d[:], sum[:discriminatorLen])
	return d
}

type decodeFunc func(r *payloadReader, meta Meta) (Event, error)

// Decoder demultiplexes raw program log lines into typed events by
// discriminator. Unknown discriminators are skipped silently; schema
// mismatches drop the single record with a warning.
type Decoder struct {
	registry map[[discriminatorLen]byte]decodeFunc
	log      *zap.Logger
}

// NewDecoder builds a decoder with all known event schemas registered.
func NewDecoder(log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Decoder{
		registry: make(map[[discriminatorLen]byte]decodeFunc),
		log:      log,
	}
	d.register("ParticipateEvent", decodeParticipate)
	d.register("StatusChangedEvent", decodeStatusChanged)
	d.register("CalculateDistributionEvent", decodeCalculateDistribution)
	return d
}

func (d *Decoder) register(name string, fn decodeFunc) {
	d.registry[Discriminator(name)] = fn
}

// DecodeLogs scans log lines for embedded event payloads and decodes every
// recognized one. Malformed records are logged and dropped.
func (d *Decoder) DecodeLogs(lines []string, slot int64, signature string) []Event {
	meta := Meta{Slot: slot, Signature: signature}

	var out []Event
	for _, line := range lines {
		payload, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil || len(raw) < discriminatorLen {
			continue
		}

		var disc [discriminatorLen]byte
		copy(disc[:], raw[:discriminatorLen])

		fn, ok := d.registry[disc]
		if !ok {
			continue
		}

		ev, err := fn(&payloadReader{buf: raw[discriminatorLen:]}, meta)
		if err != nil {
			observability.RecordDecodeError()
			d.log.Warn("dropping malformed event record",
				zap.String("signature", signature),
				zap.Int64("slot", slot),
				zap.Error(err))
			continue
		}
		observability.RecordEventDecoded(ev.Name())
		out = append(out, ev)
	}
	return out
}

func decodeParticipate(r *payloadReader, meta Meta) (Event, error) {
	ev := &ParticipateEvent{Meta: meta}
	var err error

	if ev.TokenName, err = r.str(); err == nil {
		ev.TokenSymbol, err = r.str()
	}
	if err == nil {
		ev.SolAmount, err = r.amount()
	}
	if err == nil {
		ev.TokenAmount, err = r.amount()
	}
	if err == nil {
		ev.MintAccount, err = r.pubkey()
	}
	if err == nil {
		ev.Campaign, err = r.pubkey()
	}
	if err == nil {
		ev.Participant, err = r.pubkey()
	}
	if err == nil {
		err = r.finish()
	}
	if err != nil {
		return nil, &DecodeError{Event: "ParticipateEvent", Err: err}
	}
	return ev, nil
}

// statusVariants maps the on-chain tagged-union tag to its variant name.
var statusVariants = []domain.CampaignStatus{
	domain.StatusUpcoming,
	domain.StatusPresaleOpened,
	domain.StatusPresaleFinished,
	domain.StatusDistributionOpened,
	domain.StatusDistributionFinished,
}

func decodeStatusChanged(r *payloadReader, meta Meta) (Event, error) {
	ev := &StatusChangedEvent{Meta: meta}
	var err error

	if ev.TokenName, err = r.str(); err == nil {
		ev.TokenSymbol, err = r.str()
	}

	var tag byte
	if err == nil {
		tag, err = r.u8()
	}
	if err == nil {
		if int(tag) >= len(statusVariants) {
			err = fmt.Errorf("unknown status tag %d", tag)
		} else {
			ev.Status = statusVariants[tag]
			// The distributionOpened variant carries the draw start
			// timestamp as payload.
			if ev.Status == domain.StatusDistributionOpened {
				ev.DistributeAt, err = r.i64()
			}
		}
	}
	if err == nil {
		err = r.finish()
	}
	if err != nil {
		return nil, &DecodeError{Event: "StatusChangedEvent", Err: err}
	}
	return ev, nil
}

func decodeCalculateDistribution(r *payloadReader, meta Meta) (Event, error) {
	ev := &CalculateDistributionEvent{Meta: meta}
	var err error

	if ev.TokenName, err = r.str(); err == nil {
		ev.TokenSymbol, err = r.str()
	}
	if err == nil {
		ev.Campaign, err = r.pubkey()
	}
	if err == nil {
		err = r.finish()
	}
	if err != nil {
		return nil, &DecodeError{Event: "CalculateDistributionEvent", Err: err}
	}
	return ev, nil
}

// payloadReader is a cursor over a borsh-encoded event payload.
type payloadReader struct {
	buf []byte
	off int
}

func (r *payloadReader) take(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, fmt.Errorf("payload truncated at offset %d, need %d bytes", r.off, n)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *payloadReader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *payloadReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *payloadReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

// str reads a u32-length-prefixed UTF-8 string.
func (r *payloadReader) str() (string, error) {
	b, err := r.take(4)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(b))

	s, err := r.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(s) {
		return "", fmt.Errorf("string at offset %d is not valid UTF-8", r.off-n)
	}
	return string(s), nil
}

// amount reads a fixed-point u64 and renders it as a decimal string.
func (r *payloadReader) amount() (string, error) {
	v, err := r.u64()
	if err != nil {
		return "", err
	}
	return codec.FormatAmount(v, codec.SolDecimals), nil
}

// pubkey reads a 32-byte address and renders its display encoding.
func (r *payloadReader) pubkey() (string, error) {
	b, err := r.take(32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// finish enforces byte-exact decoding: trailing bytes mean schema mismatch.
func (r *payloadReader) finish() error {
	if r.off != len(r.buf) {
		return fmt.Errorf("%d trailing bytes after payload", len(r.buf)-r.off)
	}
	return nil
}
