// Package spool implements the length-delimited record format written
// to .trk files: a uvarint byte-length prefix followed by a msgpack
// payload. It is shared by the tracker (writer) and publisher
// (reader) so the wire format is defined in exactly one place.
package spool

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/beacon/internal/errs"
)

// Record is one logged event as it exists inside a spool file.
type Record struct {
	EventTimeMs int64  `msgpack:"eventTimeMs"`
	Payload     []byte `msgpack:"payload"`
}

const maxUvarintLen = binary.MaxVarintLen64

// WriteRecord encodes rec with msgpack and writes it to w as a uvarint
// length prefix followed by the encoded bytes. It returns the total
// number of bytes written.
func WriteRecord(w io.Writer, rec Record) (int, error) {
	body, err := msgpack.Marshal(&rec)
	if err != nil {
		return 0, errs.New(errs.KindIO, "encode spool record", err)
	}

	var lenBuf [maxUvarintLen]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(body)))

	written := 0
	wn, err := w.Write(lenBuf[:n])
	written += wn
	if err != nil {
		return written, errs.New(errs.KindIO, "write spool record length", err)
	}
	wn, err = w.Write(body)
	written += wn
	if err != nil {
		return written, errs.New(errs.KindIO, "write spool record body", err)
	}
	return written, nil
}

// ReadAll reads every uvarint-length-prefixed, msgpack-encoded record
// from r until EOF. A length prefix with no matching payload bytes
// behind it — a truncated trailing record — is reported as an
// IOError: completed spool files never contain partial trailing
// records, so encountering one means the file was corrupted on disk,
// not that more data is still being written.
func ReadAll(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	var records []Record

	for {
		length, err := binary.ReadUvarint(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, errs.New(errs.KindIO, "read spool record length prefix", err)
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(br, body); err != nil {
			return records, errs.New(errs.KindIO, fmt.Sprintf("read truncated spool record body (want %d bytes)", length), err)
		}

		var rec Record
		if err := msgpack.Unmarshal(body, &rec); err != nil {
			return records, errs.New(errs.KindIO, "decode spool record", err)
		}
		records = append(records, rec)
	}
}
