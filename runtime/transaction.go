// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"github.com/ava-labs/countervm/crypto/ed25519"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/storage"
	"github.com/ava-labs/countervm/utils"
)

// Message is the signed portion of a [Transaction]: a single program
// invocation.
type Message struct {
	ProgramID solana.PublicKey      `json:"programId"`
	Accounts  []*solana.AccountMeta `json:"accounts"`
	Data      []byte                `json:"data"`
	// Nonce distinguishes otherwise identical messages.
	Nonce uint64 `json:"nonce"`
}

type wireAccountMeta struct {
	Key        [32]byte
	IsSigner   bool
	IsWritable bool
}

type wireMessage struct {
	ProgramID [32]byte
	Accounts  []wireAccountMeta
	Data      []byte
	Nonce     uint64
}

type wireTransaction struct {
	Message    wireMessage
	Signatures []Signature
}

func (m *Message) wire() wireMessage {
	w := wireMessage{
		ProgramID: m.ProgramID,
		Accounts:  make([]wireAccountMeta, len(m.Accounts)),
		Data:      m.Data,
		Nonce:     m.Nonce,
	}
	if w.Data == nil {
		w.Data = []byte{}
	}
	for i, meta := range m.Accounts {
		w.Accounts[i] = wireAccountMeta{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
		}
	}
	return w
}

func (w *wireMessage) message() Message {
	m := Message{
		ProgramID: w.ProgramID,
		Accounts:  make([]*solana.AccountMeta, len(w.Accounts)),
		Data:      w.Data,
		Nonce:     w.Nonce,
	}
	for i, meta := range w.Accounts {
		m.Accounts[i] = solana.NewAccountMeta(meta.Key, meta.IsWritable, meta.IsSigner)
	}
	return m
}

// Digest returns the bytes covered by signatures.
func (m *Message) Digest() ([]byte, error) {
	return borsh.Serialize(m.wire())
}

// Signers returns the distinct signer keys in the order they first appear.
func (m *Message) Signers() []solana.PublicKey {
	signers := []solana.PublicKey{}
	seen := map[solana.PublicKey]struct{}{}
	for _, meta := range m.Accounts {
		if !meta.IsSigner {
			continue
		}
		if _, ok := seen[meta.PublicKey]; ok {
			continue
		}
		seen[meta.PublicKey] = struct{}{}
		signers = append(signers, meta.PublicKey)
	}
	return signers
}

type Signature struct {
	PublicKey ed25519.PublicKey `json:"publicKey"`
	Signature ed25519.Signature `json:"signature"`
}

type Transaction struct {
	Message    Message     `json:"message"`
	Signatures []Signature `json:"signatures"`

	bytes []byte
	id    ids.ID
}

// Sign signs [msg] with [signers] in the order of [Message.Signers] and
// returns the initialized transaction.
func Sign(msg Message, signers ...ed25519.PrivateKey) (*Transaction, error) {
	digest, err := msg.Digest()
	if err != nil {
		return nil, err
	}
	byKey := make(map[solana.PublicKey]ed25519.PrivateKey, len(signers))
	for _, priv := range signers {
		byKey[priv.PublicKey().Address()] = priv
	}
	required := msg.Signers()
	sigs := make([]Signature, len(required))
	for i, key := range required {
		priv, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSignature, key)
		}
		sigs[i] = Signature{
			PublicKey: priv.PublicKey(),
			Signature: ed25519.Sign(digest, priv),
		}
	}
	b, err := borsh.Serialize(wireTransaction{Message: msg.wire(), Signatures: sigs})
	if err != nil {
		return nil, err
	}
	// Reload from bytes so the returned transaction matches what peers decode
	return UnmarshalTransaction(b)
}

func UnmarshalTransaction(b []byte) (*Transaction, error) {
	var w wireTransaction
	if err := borsh.Deserialize(&w, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidObject, err)
	}
	if w.Signatures == nil {
		w.Signatures = []Signature{}
	}
	bytes := make([]byte, len(b))
	copy(bytes, b)
	return &Transaction{
		Message:    w.Message.message(),
		Signatures: w.Signatures,
		bytes:      bytes,
		id:         utils.ToID(bytes),
	}, nil
}

func (t *Transaction) Bytes() []byte { return t.bytes }

func (t *Transaction) ID() ids.ID { return t.id }

// StateKeys returns the storage key of every account the message references.
// Accounts marked writable in any meta require [state.Write].
func (t *Transaction) StateKeys() state.Keys {
	keys := make(state.Keys, len(t.Message.Accounts))
	for _, meta := range t.Message.Accounts {
		p := state.Read
		if meta.IsWritable {
			p = state.Write
		}
		keys.Add(string(storage.AccountKey(meta.PublicKey)), p)
	}
	return keys
}

func (t *Transaction) checkSigners() ([]byte, error) {
	digest, err := t.Message.Digest()
	if err != nil {
		return nil, err
	}
	signers := t.Message.Signers()
	if len(signers) != len(t.Signatures) {
		return nil, fmt.Errorf("%w: required=%d provided=%d", ErrMissingSignature, len(signers), len(t.Signatures))
	}
	for i, key := range signers {
		if t.Signatures[i].PublicKey.Address() != key {
			return nil, fmt.Errorf("%w: %s", ErrSignerMismatch, key)
		}
	}
	return digest, nil
}

// Verify checks that every signer of the message provided a valid signature.
func (t *Transaction) Verify() error {
	digest, err := t.checkSigners()
	if err != nil {
		return err
	}
	for _, sig := range t.Signatures {
		if !ed25519.Verify(digest, sig.PublicKey, sig.Signature) {
			return fmt.Errorf("%w: %s", ErrInvalidSignature, sig.PublicKey)
		}
	}
	return nil
}

// AddToBatch adds the signatures of [t] to [b]. The structural checks of
// [Verify] are performed immediately.
func (t *Transaction) AddToBatch(b *ed25519.Batch) error {
	digest, err := t.checkSigners()
	if err != nil {
		return err
	}
	for _, sig := range t.Signatures {
		b.Add(digest, sig.PublicKey, sig.Signature)
	}
	return nil
}
