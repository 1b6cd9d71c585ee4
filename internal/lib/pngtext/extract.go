// Package pngtext читает параметры генерации из текстовых чанков PNG.
package pngtext

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	// ParametersKey - ключ tEXt, который пишет бэкенд генерации.
	ParametersKey = "parameters"

	chunkHeaderSize = 8
	chunkCRCSize    = 4
)

var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// ExtractParameterText возвращает значение ключа "parameters" первого чанка
// tEXt. Остальные чанки tEXt не просматриваются. На битых данных
// возвращает ("", false).
func ExtractParameterText(data []byte) (string, bool) {
	if len(data) < len(signature) || !bytes.Equal(data[:len(signature)], signature) {
		return "", false
	}

	offset := len(signature)
	for offset+chunkHeaderSize <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset:]))
		typ := string(data[offset+4 : offset+chunkHeaderSize])

		start := offset + chunkHeaderSize
		end := start + length
		if length < 0 || end < start || end > len(data) {
			return "", false
		}

		if typ == "tEXt" {
			return lookup(data[start:end], ParametersKey)
		}
		if typ == "IEND" {
			return "", false
		}

		offset = end + chunkCRCSize
	}

	return "", false
}

// lookup разбирает содержимое чанка как пары ключ/значение, разделённые NUL.
func lookup(payload []byte, key string) (string, bool) {
	parts := strings.Split(strings.ToValidUTF8(string(payload), "\uFFFD"), "\x00")
	for i := 0; i+1 < len(parts); i += 2 {
		if parts[i] == key {
			return parts[i+1], true
		}
	}
	return "", false
}
