package solana

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// BuildTransaction assembles, signs, and serializes a legacy transaction with
// payer as the sole signer and fee payer. The result is base64, ready for
// sendTransaction.
func BuildTransaction(payer *Keypair, recentBlockhash string, instructions []Instruction) (string, error) {
	message, err := compileMessage(payer.PublicKey(), recentBlockhash, instructions)
	if err != nil {
		return "", err
	}

	sig := payer.Sign(message)

	// compact array of signatures followed by the message
	wire := make([]byte, 0, 1+len(sig)+len(message))
	wire = appendCompactU16(wire, 1)
	wire = append(wire, sig...)
	wire = append(wire, message...)

	return base64.StdEncoding.EncodeToString(wire), nil
}

// compileMessage builds the legacy message: header, ordered account keys,
// recent blockhash, and compiled instructions.
func compileMessage(payer, recentBlockhash string, instructions []Instruction) ([]byte, error) {
	keys, header, err := collectAccounts(payer, instructions)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return nil, fmt.Errorf("invalid blockhash %q", recentBlockhash)
	}

	msg := []byte{header.numRequiredSignatures, header.numReadonlySigned, header.numReadonlyUnsigned}

	msg = appendCompactU16(msg, len(keys))
	for _, k := range keys {
		raw, err := base58.Decode(k)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("invalid account key %q", k)
		}
		msg = append(msg, raw...)
	}

	msg = append(msg, blockhash...)

	msg = appendCompactU16(msg, len(instructions))
	for _, ins := range instructions {
		msg = append(msg, byte(index[ins.ProgramID]))
		msg = appendCompactU16(msg, len(ins.Accounts))
		for _, acc := range ins.Accounts {
			msg = append(msg, byte(index[acc.Pubkey]))
		}
		msg = appendCompactU16(msg, len(ins.Data))
		msg = append(msg, ins.Data...)
	}

	return msg, nil
}

type messageHeader struct {
	numRequiredSignatures byte
	numReadonlySigned     byte
	numReadonlyUnsigned   byte
}

// collectAccounts orders account keys per the message layout: writable
// signers, readonly signers, writable non-signers, then readonly non-signers,
// with the fee payer always first. Program ids are readonly non-signers.
func collectAccounts(payer string, instructions []Instruction) ([]string, messageHeader, error) {
	type accountFlags struct {
		signer   bool
		writable bool
	}
	flags := map[string]*accountFlags{
		payer: {signer: true, writable: true},
	}
	order := []string{payer}

	touch := func(key string, signer, writable bool) {
		f, ok := flags[key]
		if !ok {
			f = &accountFlags{}
			flags[key] = f
			order = append(order, key)
		}
		f.signer = f.signer || signer
		f.writable = f.writable || writable
	}

	for _, ins := range instructions {
		for _, acc := range ins.Accounts {
			touch(acc.Pubkey, acc.Signer, acc.Writable)
		}
		touch(ins.ProgramID, false, false)
	}

	var writableSigners, readonlySigners, writableOthers, readonlyOthers []string
	for _, k := range order {
		f := flags[k]
		switch {
		case f.signer && f.writable:
			writableSigners = append(writableSigners, k)
		case f.signer:
			readonlySigners = append(readonlySigners, k)
		case f.writable:
			writableOthers = append(writableOthers, k)
		default:
			readonlyOthers = append(readonlyOthers, k)
		}
	}

	numSigners := len(writableSigners) + len(readonlySigners)
	if numSigners != 1 {
		return nil, messageHeader{}, fmt.Errorf("expected a single signer, got %d", numSigners)
	}

	keys := make([]string, 0, len(order))
	keys = append(keys, writableSigners...)
	keys = append(keys, readonlySigners...)
	keys = append(keys, writableOthers...)
	keys = append(keys, readonlyOthers...)

	header := messageHeader{
		numRequiredSignatures: byte(numSigners),
		numReadonlySigned:     byte(len(readonlySigners)),
		numReadonlyUnsigned:   byte(len(readonlyOthers)),
	}
	return keys, header, nil
}

// appendCompactU16 appends a shortvec-encoded length.
func appendCompactU16(buf []byte, n int) []byte {
	for {
		if n < 0x80 {
			return append(buf, byte(n))
		}
		buf = append(buf, byte(n&0x7f)|0x80)
		n >>= 7
	}
}
