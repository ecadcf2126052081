// Package pipeline drives the encode and decode state machines.
//
// The Encoder extracts every frame of a carrier video into a per-invocation
// staging workspace, encrypts the message, splits the ciphertext into
// fragments, hides each fragment in an evenly spaced frame and rebuilds the
// video. An optional manifest image carries the encrypted frame index list.
//
// The Decoder resolves the frame indices (from a manifest image or a literal
// list), decodes the video sequentially up to the highest index, probes each
// selected frame and joins whatever fragments it finds in ascending index
// order before decrypting. Frames without a payload are recorded as misses;
// recovering nothing at all is a normal result, not an error.
//
// Both orchestrators acquire a locked staging workspace named after the
// request id and release it on every exit path. Outputs are published only
// after every step succeeds.
package pipeline
