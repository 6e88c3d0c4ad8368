package ring

import (
	"encoding/binary"
	"fmt"
	"os"
)

// DebugRingDetail prints the header state of a ring segment file without
// attaching to it. Intended for poking at a live or leaked segment from the
// command line.
func DebugRingDetail(path string) {
	mem, err := os.ReadFile(path)
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(mem) < headerSize {
		fmt.Printf("path:%s too small for a ring segment (%d bytes)\n", path, len(mem))
		return
	}
	magic := binary.LittleEndian.Uint32(mem[magicOffset:])
	if magic != ringMagic {
		fmt.Printf("path:%s is not a ring segment (magic %#x)\n", path, magic)
		return
	}
	capacity := binary.LittleEndian.Uint32(mem[capacityOffset:])
	halt := binary.LittleEndian.Uint32(mem[haltOffset:])
	writeIdx := binary.LittleEndian.Uint64(mem[writeIdxOffset:])
	readIdx := binary.LittleEndian.Uint64(mem[readIdxOffset:])
	fmt.Printf("path:%s cap:%d write_idx:%d read_idx:%d halt:%d\n",
		path, capacity, writeIdx, readIdx, halt)
}
