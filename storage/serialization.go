// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/concierge/core"
)

// Records are encoded field by field in declaration order using MUS
// primitives. Timestamps are stored as UTC Unix microseconds.

// sizer accumulates the encoded size of a record.
type sizer int

func (s *sizer) str(v string)     { *s += sizer(ord.String.Size(v)) }
func (s *sizer) u64(v uint64)     { *s += sizer(varint.Uint64.Size(v)) }
func (s *sizer) int(v int)        { *s += sizer(varint.Int64.Size(int64(v))) }
func (s *sizer) time(v time.Time) { *s += sizer(varint.Int64.Size(timeToMicro(v))) }

func (s *sizer) strs(v []string) {
	s.int(len(v))
	for _, item := range v {
		s.str(item)
	}
}

func (s *sizer) floats(v []float32) {
	s.int(len(v))
	for _, f := range v {
		*s += sizer(varint.Uint32.Size(math.Float32bits(f)))
	}
}

// encoder writes fields into a buffer sized by a sizer.
type encoder struct {
	buf []byte
	n   int
}

func newEncoder(size sizer) *encoder {
	return &encoder{buf: make([]byte, int(size))}
}

func (e *encoder) str(v string)     { e.n += ord.String.Marshal(v, e.buf[e.n:]) }
func (e *encoder) u64(v uint64)     { e.n += varint.Uint64.Marshal(v, e.buf[e.n:]) }
func (e *encoder) int(v int)        { e.n += varint.Int64.Marshal(int64(v), e.buf[e.n:]) }
func (e *encoder) time(v time.Time) { e.n += varint.Int64.Marshal(timeToMicro(v), e.buf[e.n:]) }

func (e *encoder) strs(v []string) {
	e.int(len(v))
	for _, item := range v {
		e.str(item)
	}
}

func (e *encoder) floats(v []float32) {
	e.int(len(v))
	for _, f := range v {
		e.n += varint.Uint32.Marshal(math.Float32bits(f), e.buf[e.n:])
	}
}

// decoder reads fields in order. After the first failure every read is a
// no-op and err holds the cause.
type decoder struct {
	buf []byte
	n   int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.buf[d.n:])
	if err != nil {
		d.fail(err)
		return ""
	}
	d.n += n
	return v
}

func (d *decoder) u64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.buf[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.buf[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return int(v)
}

func (d *decoder) length() int {
	l := d.int()
	if d.err == nil && (l < 0 || l > len(d.buf)-d.n) {
		d.fail(ErrTruncatedData)
		return 0
	}
	return l
}

func (d *decoder) time() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(d.buf[d.n:])
	if err != nil {
		d.fail(err)
		return time.Time{}
	}
	d.n += n
	return microToTime(v)
}

func (d *decoder) strs() []string {
	l := d.length()
	if l == 0 {
		return nil
	}
	out := make([]string, 0, l)
	for i := 0; i < l && d.err == nil; i++ {
		out = append(out, d.str())
	}
	return out
}

func (d *decoder) floats() []float32 {
	l := d.length()
	if l == 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		if d.err != nil {
			return nil
		}
		v, n, err := varint.Uint32.Unmarshal(d.buf[d.n:])
		if err != nil {
			d.fail(err)
			return nil
		}
		d.n += n
		out[i] = math.Float32frombits(v)
	}
	return out
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.n != len(d.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(d.buf)-d.n)
	}
	return nil
}

// timeToMicro maps the zero time to 0 so unset timestamps survive a round trip.
func timeToMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microToTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

// MarshalConversationSummary serializes a conversation header to bytes.
func MarshalConversationSummary(summary *core.ConversationSummary) []byte {
	var s sizer
	s.str(summary.SessionID)
	s.int(summary.MessageCount)
	s.time(summary.CreatedAt)
	s.time(summary.UpdatedAt)

	e := newEncoder(s)
	e.str(summary.SessionID)
	e.int(summary.MessageCount)
	e.time(summary.CreatedAt)
	e.time(summary.UpdatedAt)
	return e.buf
}

// UnmarshalConversationSummary deserializes a conversation header from bytes.
func UnmarshalConversationSummary(data []byte) (*core.ConversationSummary, error) {
	d := &decoder{buf: data}
	summary := &core.ConversationSummary{
		SessionID:    d.str(),
		MessageCount: d.int(),
		CreatedAt:    d.time(),
		UpdatedAt:    d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return summary, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) []byte {
	var s sizer
	s.str(msg.HumanText)
	s.str(msg.AIText)
	s.int(len(msg.Sources))
	for _, src := range msg.Sources {
		s.str(src.Title)
		s.str(src.URL)
	}
	s.strs(msg.Suggestions)
	s.time(msg.Timestamp)

	e := newEncoder(s)
	e.str(msg.HumanText)
	e.str(msg.AIText)
	e.int(len(msg.Sources))
	for _, src := range msg.Sources {
		e.str(src.Title)
		e.str(src.URL)
	}
	e.strs(msg.Suggestions)
	e.time(msg.Timestamp)
	return e.buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	d := &decoder{buf: data}
	msg := &core.Message{
		HumanText: d.str(),
		AIText:    d.str(),
	}
	if l := d.length(); l > 0 {
		msg.Sources = make([]core.Source, 0, l)
		for i := 0; i < l && d.err == nil; i++ {
			msg.Sources = append(msg.Sources, core.Source{Title: d.str(), URL: d.str()})
		}
	}
	msg.Suggestions = d.strs()
	msg.Timestamp = d.time()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return msg, nil
}

// MarshalFeedback serializes a FeedbackRecord to bytes.
func MarshalFeedback(record *core.FeedbackRecord) []byte {
	var s sizer
	s.str(record.ID)
	s.str(record.Query)
	s.str(record.Answer)
	s.str(string(record.Rating))
	s.time(record.Timestamp)

	e := newEncoder(s)
	e.str(record.ID)
	e.str(record.Query)
	e.str(record.Answer)
	e.str(string(record.Rating))
	e.time(record.Timestamp)
	return e.buf
}

// UnmarshalFeedback deserializes a FeedbackRecord from bytes.
func UnmarshalFeedback(data []byte) (*core.FeedbackRecord, error) {
	d := &decoder{buf: data}
	record := &core.FeedbackRecord{
		ID:        d.str(),
		Query:     d.str(),
		Answer:    d.str(),
		Rating:    core.Rating(d.str()),
		Timestamp: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return record, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	var s sizer
	s.u64(uint64(chunk.Id))
	s.str(chunk.Text)
	s.str(chunk.Title)
	s.str(chunk.URL)
	s.floats(chunk.Vector)

	e := newEncoder(s)
	e.u64(uint64(chunk.Id))
	e.str(chunk.Text)
	e.str(chunk.Title)
	e.str(chunk.URL)
	e.floats(chunk.Vector)
	return e.buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	d := &decoder{buf: data}
	chunk := &core.Chunk{
		Id:     core.ID(d.u64()),
		Text:   d.str(),
		Title:  d.str(),
		URL:    d.str(),
		Vector: d.floats(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return chunk, nil
}

// MarshalManifest serializes an IndexManifest to bytes.
func MarshalManifest(manifest *core.IndexManifest) []byte {
	var s sizer
	s.str(manifest.EmbeddingModel)
	s.int(manifest.Dimensions)
	s.int(manifest.ChunkCount)
	s.int(manifest.DocumentCount)
	s.time(manifest.BuiltAt)

	e := newEncoder(s)
	e.str(manifest.EmbeddingModel)
	e.int(manifest.Dimensions)
	e.int(manifest.ChunkCount)
	e.int(manifest.DocumentCount)
	e.time(manifest.BuiltAt)
	return e.buf
}

// UnmarshalManifest deserializes an IndexManifest from bytes.
func UnmarshalManifest(data []byte) (*core.IndexManifest, error) {
	d := &decoder{buf: data}
	manifest := &core.IndexManifest{
		EmbeddingModel: d.str(),
		Dimensions:     d.int(),
		ChunkCount:     d.int(),
		DocumentCount:  d.int(),
		BuiltAt:        d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return manifest, nil
}
