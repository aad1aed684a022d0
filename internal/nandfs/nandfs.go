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

// Package nandfs parses the Reliance-like filesystem FlashFX maps onto NAND
// flash (spec §3 "Filesystem model", §4.E). Parsing failures downgrade to
// "filesystem unrecognised" rather than panicking (spec §9 Open Questions).
package nandfs

import (
	"encoding/binary"

	"github.com/nspiresim/firebirdcore/internal/curated"
	"github.com/nspiresim/firebirdcore/internal/logger"
	"github.com/nspiresim/firebirdcore/internal/nand"
)

const (
	magicMAST = "MAST"
	magicMETA = "META"
	magicINOD = "INOD"
)

// Kind distinguishes a file node from a directory node.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

// StorageMode names how a node's data blocks are addressed (spec §3).
type StorageMode int

const (
	StorageInline StorageMode = iota
	StorageSingleIndirect
	StorageDoubleIndirect
	StorageTripleIndirect
)

// Node is one parsed filesystem entry.
type Node struct {
	InodeNum     uint32
	ParentInode  uint32
	Kind         Kind
	Name         string
	FullPath     string
	Size         uint32
	MTime        uint32
	StorageMode  StorageMode
	InodeBlock   uint32
	DataBlocks   []uint32
}

// Filesystem is the parsed view over a flash image's filesystem partition.
type Filesystem struct {
	chip       *nand.Chip
	partition  nand.PartitionRange
	blockSize  uint32
	totalBlocks uint32

	logicalToPhysical map[uint32]uint32

	nodes   map[uint32]*Node
	roots   []uint32

	// Orphans holds inode numbers seen in an INOD block scan that were
	// superseded by a later copy-on-write physical block but never
	// reclaimed — surfaced for diagnostics (SPEC_FULL.md supplemented
	// feature: orphan accounting).
	Orphans []uint32
}

// Parse scans chip's filesystem partition and reconstructs the directory
// tree. A parse failure returns a curated FSUnrecognised error; callers
// should treat that as "no filesystem", not a fatal condition.
func Parse(chip *nand.Chip, partition nand.PartitionRange) (*Filesystem, error) {
	fs := &Filesystem{
		chip:              chip,
		partition:         partition,
		logicalToPhysical: map[uint32]uint32{},
		nodes:             map[uint32]*Node{},
	}

	if err := fs.buildLogicalMap(); err != nil {
		return nil, err
	}
	mast, err := fs.readMAST()
	if err != nil {
		return nil, err
	}
	fs.blockSize = mast.blockSize
	fs.totalBlocks = mast.totalBlocks

	meta, err := fs.readBestMETA(mast)
	if err != nil {
		return nil, err
	}
	_ = meta

	if err := fs.scanInodes(); err != nil {
		return nil, err
	}
	fs.linkTree()

	return fs, nil
}

type mastBlock struct {
	blockSize   uint32
	totalBlocks uint32
	metaPtrA    uint32
	metaPtrB    uint32
}

// buildLogicalMap scans the spare-area allocation bytes of every physical
// block in the partition, keeping the highest sequence number seen per
// logical address (spec §3 "FlashFX mapping"). When no FlashFX metadata is
// present at all, the identity map is used instead.
func (fs *Filesystem) buildLogicalMap() error {
	ppb := fs.chip.Metrics.PagesPerBlock()
	blockCount := (fs.partition.EndRow - fs.partition.StartRow) / ppb

	type seen struct {
		physical uint32
		sequence uint32
	}
	best := map[uint32]seen{}
	anyMetadata := false

	for b := uint32(0); b < blockCount; b++ {
		physicalBlock := fs.partition.StartRow/ppb + b
		row := physicalBlock * ppb
		spare := fs.chip.ReadRaw(row, fs.chip.Metrics.PageSize, 16)
		if len(spare) < 8 {
			continue
		}
		logical := binary.LittleEndian.Uint32(spare[0:4])
		sequence := binary.LittleEndian.Uint32(spare[4:8])
		if logical == 0xFFFFFFFF {
			continue
		}
		anyMetadata = true
		if cur, ok := best[logical]; !ok || sequence > cur.sequence {
			best[logical] = seen{physical: physicalBlock, sequence: sequence}
		}
	}

	if !anyMetadata {
		for b := uint32(0); b < blockCount; b++ {
			fs.logicalToPhysical[b] = fs.partition.StartRow/ppb + b
		}
		return nil
	}

	for logical, s := range best {
		fs.logicalToPhysical[logical] = s.physical
	}
	return nil
}

func (fs *Filesystem) physicalRow(logicalBlock uint32) (uint32, bool) {
	ppb := fs.chip.Metrics.PagesPerBlock()
	phys, ok := fs.logicalToPhysical[logicalBlock]
	if !ok {
		return 0, false
	}
	return phys * ppb, true
}

func (fs *Filesystem) readMAST() (mastBlock, error) {
	row, ok := fs.physicalRow(0)
	if !ok {
		return mastBlock{}, curated.Errorf(curated.FSUnrecognised)
	}
	page := fs.chip.ReadRaw(row, 0, fs.chip.Metrics.PageSize)
	if len(page) < 4+16 || string(page[0:4]) != magicMAST {
		return mastBlock{}, curated.Errorf(curated.FSUnrecognised)
	}
	return mastBlock{
		blockSize:   binary.LittleEndian.Uint32(page[4:8]),
		totalBlocks: binary.LittleEndian.Uint32(page[8:12]),
		metaPtrA:    binary.LittleEndian.Uint32(page[12:16]),
		metaPtrB:    binary.LittleEndian.Uint32(page[16:20]),
	}, nil
}

type metaBlock struct {
	sequence uint32
}

// readBestMETA reads the two META superblock copies and keeps the higher
// sequence counter (spec §3 "Two META superblock copies; the higher
// sequence counter wins").
func (fs *Filesystem) readBestMETA(mast mastBlock) (metaBlock, error) {
	read := func(logical uint32) (metaBlock, bool) {
		row, ok := fs.physicalRow(logical)
		if !ok {
			return metaBlock{}, false
		}
		page := fs.chip.ReadRaw(row, 0, fs.chip.Metrics.PageSize)
		if len(page) < 8 || string(page[0:4]) != magicMETA {
			return metaBlock{}, false
		}
		return metaBlock{sequence: binary.LittleEndian.Uint32(page[4:8])}, true
	}

	a, okA := read(mast.metaPtrA)
	b, okB := read(mast.metaPtrB)
	switch {
	case okA && okB:
		if a.sequence >= b.sequence {
			return a, nil
		}
		return b, nil
	case okA:
		return a, nil
	case okB:
		return b, nil
	default:
		return metaBlock{}, curated.Errorf(curated.FSUnrecognised)
	}
}

// scanInodes linearly scans every block in the partition for INOD blocks,
// keeping the newest physical block per inode number (copy-on-write, spec
// §3). Superseded physical blocks' inode numbers that no longer own a
// current copy are recorded as orphans.
func (fs *Filesystem) scanInodes() error {
	ppb := fs.chip.Metrics.PagesPerBlock()
	blockCount := (fs.partition.EndRow - fs.partition.StartRow) / ppb

	type candidate struct {
		node     *Node
		physical uint32
		seq      uint32
	}
	latest := map[uint32]candidate{}
	seenAny := false

	for b := uint32(0); b < blockCount; b++ {
		physicalBlock := fs.partition.StartRow/ppb + b
		row := physicalBlock * ppb
		page := fs.chip.ReadRaw(row, 0, fs.chip.Metrics.PageSize)
		if len(page) < 4 || string(page[0:4]) != magicINOD {
			continue
		}
		seenAny = true
		n, seq, err := fs.decodeInode(page, physicalBlock)
		if err != nil {
			logger.Log("nandfs", "inode block %d malformed: %v", physicalBlock, err)
			continue
		}
		if cur, ok := latest[n.InodeNum]; !ok || seq > cur.seq {
			if ok {
				fs.Orphans = append(fs.Orphans, cur.node.InodeNum)
			}
			latest[n.InodeNum] = candidate{node: n, physical: physicalBlock, seq: seq}
		} else {
			fs.Orphans = append(fs.Orphans, n.InodeNum)
		}
	}

	if !seenAny {
		return curated.Errorf(curated.FSUnrecognised)
	}

	for _, c := range latest {
		fs.nodes[c.node.InodeNum] = c.node
	}
	return nil
}

// blockListOffset/blockListSize bound the raw direct/indirect block-pointer
// list carried in every inode block, following the fixed header and name
// cell (spec §3 "Storage modes").
const (
	blockListOffset = 0x40
	blockListSize   = 0xC0
)

func (fs *Filesystem) decodeInode(page []byte, physicalBlock uint32) (*Node, uint32, error) {
	if len(page) < blockListOffset+blockListSize {
		return nil, 0, curated.Errorf(curated.FSUnrecognised)
	}
	seq := binary.LittleEndian.Uint32(page[4:8])
	inodeNum := binary.LittleEndian.Uint32(page[8:12])
	parent := binary.LittleEndian.Uint32(page[12:16])
	kindByte := page[16]
	mode := page[17]
	size := binary.LittleEndian.Uint32(page[24:28])
	mtime := binary.LittleEndian.Uint32(page[28:32])

	kind := KindFile
	if kindByte == 1 {
		kind = KindDir
	}

	name := decodeDirName(page[0x20:0x40])
	storageMode := StorageMode(mode & 0x3)
	blocks := fs.resolveDataBlocks(storageMode, page[blockListOffset:blockListOffset+blockListSize])

	n := &Node{
		InodeNum:    inodeNum,
		ParentInode: parent,
		Kind:        kind,
		Name:        name,
		Size:        size,
		MTime:       mtime,
		StorageMode: storageMode,
		InodeBlock:  physicalBlock,
		DataBlocks:  blocks,
	}
	return n, seq, nil
}

// linkTree assigns FullPath to every node by walking parent links, and
// collects top-level roots (parent inode 0 or missing parent).
func (fs *Filesystem) linkTree() {
	var resolve func(n *Node, depth int) string
	resolve = func(n *Node, depth int) string {
		if n.FullPath != "" {
			return n.FullPath
		}
		if depth > 32 {
			n.FullPath = "/" + n.Name
			return n.FullPath
		}
		parent, ok := fs.nodes[n.ParentInode]
		if !ok || n.ParentInode == 0 {
			n.FullPath = "/" + n.Name
			fs.roots = append(fs.roots, n.InodeNum)
			return n.FullPath
		}
		n.FullPath = resolve(parent, depth+1) + "/" + n.Name
		return n.FullPath
	}
	for _, n := range fs.nodes {
		resolve(n, 0)
	}
}

// Lookup finds a node by its full path.
func (fs *Filesystem) Lookup(path string) (*Node, error) {
	for _, n := range fs.nodes {
		if n.FullPath == path {
			return n, nil
		}
	}
	return nil, curated.Errorf(curated.FSUnrecognised)
}

// Nodes returns every parsed node, for traversal/testing.
func (fs *Filesystem) Nodes() map[uint32]*Node {
	return fs.nodes
}
