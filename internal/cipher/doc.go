// Package cipher is the encryption gateway used by the encode and decode
// pipelines.
//
// Two interchangeable schemes are exposed behind Encrypt and Decrypt:
//
//   - Symmetric: a shared secret is NFC-normalized and stretched with argon2id;
//     the body is sealed with AES-256-GCM. The argon2id cost parameters and salt
//     travel in the ciphertext header so decoding never depends on local
//     configuration.
//   - Asymmetric: a random data key seals the body with ChaCha20-Poly1305 and
//     is itself wrapped with RSA-OAEP (SHA-256) for the recipient's public key,
//     so messages are not limited by the RSA modulus.
//
// WrapKey and UnwrapKey implement the hybrid sub-mode where a symmetric secret
// is transported separately, wrapped for an RSA public key. Ciphertexts are
// base64 strings so they can be split into printable fragments.
package cipher
