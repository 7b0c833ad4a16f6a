// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/cli/cli/types.go
package cli

import (
	"github.com/cloudflare/circl/kem/kyber/kyber768"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/types"
)

// Config holds the options shared by the commands that talk to a node.
type Config struct {
	Node      string // base URL of the node API
	Transport string // rest, rpc or ws
}

// SendConfig is the parsed form of the send flags.
type SendConfig struct {
	Config
	Key       *slhdsa.PrivateKey
	KEMKey    *kyber768.PublicKey
	Recipient types.Pubkey
	Sequence  uint64
	Plaintext []byte
	Outbox    string // local store of messages not yet stored by the node
}

// ReadConfig is the parsed form of the read flags.
type ReadConfig struct {
	Config
	Recipient types.Pubkey
	Sequence  *uint64
	KEMKey    *kyber768.PrivateKey
}
