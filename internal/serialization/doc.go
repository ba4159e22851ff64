// Package serialization implements the .hpk binary encoding of a
// container tree.
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00 magic "HPKL"
//	    0x04 version (uint32 LE)
//	    0x08 flags (uint32 LE)
//	    0x0C reserved
//	    0x10 JSON header size (uint64 LE)
//	    0x18 data section size (uint64 LE)
//	    0x20 SHA-256 of the data section
//	  [JSON header: file metadata and the node tree]
//	  [padding to 64 bytes]
//	  [data section: dataset payloads, each 64-byte aligned]
//
// The JSON header describes every group with its attributes and every
// dataset with its dtype, shape and the offset and size of its payload
// within the data section. Attribute values carry an explicit kind so that
// integer widths and byte strings survive the trip through JSON.
//
// Trees can be decoded from a byte slice, a stream, a file or a
// memory-mapped file. Payloads decoded without copying alias the input;
// such trees are read-only.
package serialization
