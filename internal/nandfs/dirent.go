// This file is part of Firebird Core.
//
// Firebird Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Firebird Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Firebird Core.  If not, see <https://www.gnu.org/licenses/>.

package nandfs

import "encoding/binary"

const (
	direntMagic      = 0x80
	direntAttrInUse  = 0x01
	direntAttrIsDir  = 0x02
	cellNameChunk    = 14 // name bytes per fragment, per cell-fragmented encoding
)

// DirEntry is one decoded directory entry: a name plus the inode number it
// resolves to (spec §3 "Directory entries").
type DirEntry struct {
	ChildInode uint32
	IsDir      bool
	Name       string
}

// decodeDirName reassembles a cell-fragmented UTF-16LE name buffer. Names
// longer than one storage cell are split every cellNameChunk bytes by a
// 2-byte continuation header, which is dropped on reassembly (spec §9 Open
// Questions: "a 2-byte continuation header every 14 name bytes").
func decodeDirName(buf []byte) string {
	var units []uint16
	for off := 0; off < len(buf); {
		chunkEnd := off + cellNameChunk
		if chunkEnd > len(buf) {
			chunkEnd = len(buf)
		}
		chunk := buf[off:chunkEnd]
		for i := 0; i+1 < len(chunk); i += 2 {
			u := binary.LittleEndian.Uint16(chunk[i : i+2])
			if u == 0 {
				return utf16ToString(units)
			}
			units = append(units, u)
		}
		off = chunkEnd
		if off < len(buf) {
			off += 2 // skip the next fragment's continuation header
		}
	}
	return utf16ToString(units)
}

// utf16ToString decodes BMP-only UTF-16LE code units (the calculator
// filesystem never stores surrogate pairs in practice).
func utf16ToString(units []uint16) string {
	r := make([]rune, len(units))
	for i, u := range units {
		r[i] = rune(u)
	}
	return string(r)
}

// decodeDirEntries parses the directory-entry stream held in a directory
// node's data blocks (spec §3: "magic 0x80, entry_len, name_byte_len,
// attributes (in-use, is-dir), child_inode (big-endian 16-bit), cell-
// fragmented UTF-16LE name"). Malformed trailing bytes are ignored rather
// than treated as an error, matching the parser's overall non-panicking
// stance.
func decodeDirEntries(data []byte) []DirEntry {
	var entries []DirEntry
	off := 0
	for off+6 <= len(data) {
		if data[off] != direntMagic {
			break
		}
		entryLen := int(data[off+1])
		nameLen := int(data[off+2])
		attrs := data[off+3]
		if entryLen <= 0 || off+entryLen > len(data) {
			break
		}
		child := binary.BigEndian.Uint16(data[off+4 : off+6])

		nameStart := off + 6
		nameEnd := nameStart + nameLen
		if nameEnd > off+entryLen {
			nameEnd = off + entryLen
		}
		name := decodeDirName(data[nameStart:nameEnd])

		if attrs&direntAttrInUse != 0 {
			entries = append(entries, DirEntry{
				ChildInode: uint32(child),
				IsDir:      attrs&direntAttrIsDir != 0,
				Name:       name,
			})
		}
		off += entryLen
	}
	return entries
}

// resolveDataBlocks expands a node's raw block-list field into physical
// block numbers according to its storage mode (spec §3 "Storage modes:
// inline, single/double/triple indirect"). Indirect levels are resolved
// through the same logical-to-physical map used for the rest of the
// filesystem.
func (fs *Filesystem) resolveDataBlocks(mode StorageMode, raw []byte) []uint32 {
	direct := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		b := binary.LittleEndian.Uint32(raw[i : i+4])
		if b != 0 && b != 0xFFFFFFFF {
			direct = append(direct, b)
		}
	}

	switch mode {
	case StorageInline:
		return direct
	case StorageSingleIndirect:
		return fs.expandIndirect(direct, 1)
	case StorageDoubleIndirect:
		return fs.expandIndirect(direct, 2)
	case StorageTripleIndirect:
		return fs.expandIndirect(direct, 3)
	default:
		return direct
	}
}

// expandIndirect follows levels of indirect block pointers, each indirect
// block itself being a page full of little-endian u32 logical block
// numbers.
func (fs *Filesystem) expandIndirect(pointers []uint32, levels int) []uint32 {
	if levels == 0 {
		return pointers
	}
	var out []uint32
	for _, logical := range pointers {
		row, ok := fs.physicalRow(logical)
		if !ok {
			continue
		}
		page := fs.chip.ReadRaw(row, 0, fs.chip.Metrics.PageSize)
		var next []uint32
		for i := 0; i+4 <= len(page); i += 4 {
			b := binary.LittleEndian.Uint32(page[i : i+4])
			if b != 0 && b != 0xFFFFFFFF {
				next = append(next, b)
			}
		}
		out = append(out, fs.expandIndirect(next, levels-1)...)
	}
	return out
}

// ReadDir decodes the directory-entry stream for a directory node, resolving
// each data block through the filesystem's logical-to-physical map.
func (fs *Filesystem) ReadDir(n *Node) []DirEntry {
	if n.Kind != KindDir {
		return nil
	}
	var entries []DirEntry
	for _, logical := range n.DataBlocks {
		row, ok := fs.physicalRow(logical)
		if !ok {
			continue
		}
		page := fs.chip.ReadRaw(row, 0, fs.chip.Metrics.PageSize)
		entries = append(entries, decodeDirEntries(page)...)
	}
	return entries
}

// ReadFile concatenates a file node's data blocks into its raw contents,
// truncated to its recorded Size (spec §4.E "nand_fs_read_file").
func (fs *Filesystem) ReadFile(n *Node) []byte {
	if n.Kind != KindFile {
		return nil
	}
	out := make([]byte, 0, n.Size)
	for _, logical := range n.DataBlocks {
		row, ok := fs.physicalRow(logical)
		if !ok {
			continue
		}
		out = append(out, fs.chip.ReadRaw(row, 0, fs.chip.Metrics.PageSize)...)
	}
	if uint32(len(out)) > n.Size {
		out = out[:n.Size]
	}
	return out
}
