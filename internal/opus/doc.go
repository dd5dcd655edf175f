// Package opus reads and writes Opus audio carried in an Ogg container.
//
// PacketReader pulls packets out of an Ogg stream one at a time and decodes
// each into interleaved 16-bit PCM. The identification (OpusHead) and comment
// (OpusTags) packets carry no audio; they decode to an empty frame.
//
// EncodeOgg goes the other way: it encodes PCM into 20ms Opus packets and
// writes them, with the two header packets, as an Ogg stream.
package opus
