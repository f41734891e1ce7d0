package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
)

// Segment file layout: a fixed binary header, two JSON sections (term
// dictionary with postings, then document metadata), and a CRC32 footer over
// both sections. A file is written once via temp+rename and never modified.
const (
	MagicBytes    uint32 = 0x4B534731 // "KSG1"
	FormatVersion uint32 = 1
	headerSize           = 32
	footerSize           = 4
)

// FileName returns the segment file name for the given segment ID.
func FileName(id string) string {
	return fmt.Sprintf("seg_%s.ksg", id)
}

// Write atomically creates a new segment file for the given entries and
// documents in dir, writing to a .tmp file first and renaming on success.
// Returns the final file name.
func Write(dir, id string, entries []TermEntry, docs []DocInfo) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	name := FileName(id)
	finalPath := filepath.Join(dir, name)
	tmpPath := finalPath + ".tmp"

	dictData, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	docsData, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("marshaling documents: %w", err)
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(entries)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(docs)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(docsData)))

	checksum := crc32.ChecksumIEEE(dictData)
	checksum = crc32.Update(checksum, crc32.IEEETable, docsData)
	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(footer, checksum)

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	for _, part := range [][]byte{header, dictData, docsData, footer} {
		if _, err := f.Write(part); err != nil {
			return "", fmt.Errorf("writing segment file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	f = nil
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return name, nil
}
