package service

// CryptoOption describes one algorithm choice offered to the UI, with a
// rough security grade from 1 (avoid) to 5 (recommended).
type CryptoOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Security int    `json:"security"`
}

// CryptoOptions lists the supported IKE/ESP building blocks.
type CryptoOptions struct {
	Encryption []CryptoOption `json:"encryption"`
	Integrity  []CryptoOption `json:"integrity"`
	DhGroups   []CryptoOption `json:"dh_groups"`
}

// GetCryptoOptions returns the algorithm catalog for proposal builders.
func GetCryptoOptions() *CryptoOptions {
	return &CryptoOptions{
		Encryption: []CryptoOption{
			{Value: "aes256", Label: "AES-256", Security: 5},
			{Value: "aes128", Label: "AES-128", Security: 4},
			{Value: "aes256gcm16", Label: "AES-256-GCM (IKEv2)", Security: 5},
			{Value: "chacha20poly1305", Label: "ChaCha20-Poly1305 (IKEv2)", Security: 5},
			{Value: "3des", Label: "3DES (Legacy)", Security: 2},
		},
		Integrity: []CryptoOption{
			{Value: "sha256", Label: "SHA-256", Security: 5},
			{Value: "sha384", Label: "SHA-384", Security: 5},
			{Value: "sha512", Label: "SHA-512", Security: 5},
			{Value: "sha1", Label: "SHA-1 (Legacy)", Security: 3},
		},
		DhGroups: []CryptoOption{
			{Value: "modp2048", Label: "MODP 2048-bit", Security: 4},
			{Value: "modp3072", Label: "MODP 3072-bit", Security: 5},
			{Value: "modp4096", Label: "MODP 4096-bit", Security: 5},
			{Value: "ecp256", Label: "ECP 256-bit", Security: 5},
			{Value: "ecp384", Label: "ECP 384-bit", Security: 5},
			{Value: "curve25519", Label: "Curve25519", Security: 5},
		},
	}
}
