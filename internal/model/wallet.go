package model

import "time"

// WalletEntry is one custodied wallet inside a user's record. Seed and private
// key are stored only as cipher envelopes; plaintext never touches the store.
type WalletEntry struct {
	Address             string    `bson:"address" json:"address"`
	EncryptedSeed       string    `bson:"encryptedSeed" json:"-"`
	EncryptedPrivateKey string    `bson:"encryptedPrivateKey" json:"-"`
	PublicKey           string    `bson:"publicKey" json:"publicKey"`
	Name                string    `bson:"name" json:"name"`
	Balance             string    `bson:"balance" json:"balance"`
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
}

// WalletRecord is the per-user document: one record per external user
// identity, holding the ordered wallet list and the active wallet pointer.
type WalletRecord struct {
	UserID            string        `bson:"userId" json:"userId"`
	Wallets           []WalletEntry `bson:"wallets" json:"wallets"`
	ActiveWalletIndex int           `bson:"activeWalletIndex" json:"activeWalletIndex"`
}

// ActiveWallet returns the entry the active index points at.
// Callers must only use it on records with at least one wallet.
func (r *WalletRecord) ActiveWallet() *WalletEntry {
	if len(r.Wallets) == 0 {
		return nil
	}
	i := r.ActiveWalletIndex
	if i < 0 || i >= len(r.Wallets) {
		i = 0
	}
	return &r.Wallets[i]
}
