/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package security defines the router's narrow view of the IEEE 1609.2 /
// ETSI TS 103 097 security envelope: an optional collaborator injected at
// construction, used at egress to encapsulate a to-be-signed packet and at
// ingress to decapsulate a SecuredHeader payload. The router never
// implements signing, certificate validation or PKI flows itself; it only
// calls through this interface and reacts to its error taxonomy.
package security

import (
	"errors"

	"github.com/kurkpitaine/veloce-sub002/geoarea"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// Security failure kinds. Never nested more than this one level.
var (
	ErrInvalidSignature        = errors.New("security: invalid signature")
	ErrOffValidityPeriod       = errors.New("security: certificate off its validity period")
	ErrInsufficientPermissions = errors.New("security: insufficient permissions")
	ErrDecryptionFailed        = errors.New("security: decryption failed")
	ErrUnknownSigner           = errors.New("security: unknown signer")
)

// Permission identifies the application permission (ITS-AID + SSP) a
// to-be-signed packet is encapsulated under.
type Permission struct {
	ITSAID uint32
	SSP    []byte
}

// DecapConfirm is returned by DecapPacket on success.
type DecapConfirm struct {
	SecuredMessage []byte // the still-encapsulated form, preserved for forwarding
	Plaintext      []byte // the decapsulated Common Header + payload
}

// Service is the narrow surface the router calls into. A concrete
// implementation wraps whatever certificate store, signer and PKI client
// the deployment uses.
type Service interface {
	// EncapPacket signs/encrypts tbs under permission and returns the
	// full secured envelope ready to follow the Basic Header on the wire.
	EncapPacket(tbs []byte, permission Permission, now tai.Time, position geoarea.Position) ([]byte, error)
	// DecapPacket verifies and opens a received secured envelope.
	DecapPacket(received []byte, now tai.Time, position geoarea.Position) (DecapConfirm, error)
}

// Repr tags how a packet's egress body must be produced, decided by the
// router before the security glue is consulted.
type Repr uint8

// Egress representations.
const (
	// ReprPlain: no security, emit common+extended+payload unencrypted.
	ReprPlain Repr = iota
	// ReprToSecure: serialize common+extended+payload and call EncapPacket.
	ReprToSecure
	// ReprSecuredDecap: re-emit an already-encapsulated form received on
	// ingress and preserved for forwarding (signature must not be broken).
	ReprSecuredDecap
)

// Egress encapsulates a packet for the wire according to repr. tbs is the
// serialized common+extended+payload, used only for ReprToSecure. already
// is the secured_message retained from ingress, used only for
// ReprSecuredDecap.
func Egress(svc Service, repr Repr, tbs, already []byte, permission Permission, now tai.Time, position geoarea.Position) ([]byte, error) {
	switch repr {
	case ReprToSecure:
		if svc == nil {
			return nil, ErrInsufficientPermissions
		}
		return svc.EncapPacket(tbs, permission, now, position)
	case ReprSecuredDecap:
		return already, nil
	default:
		return tbs, nil
	}
}

// Ingress decapsulates a SecuredHeader payload. The caller is expected to
// then parse confirm.Plaintext as a Common Header and continue processing,
// attaching confirm.SecuredMessage to the packet so forwarding preserves
// the signature.
func Ingress(svc Service, received []byte, now tai.Time, position geoarea.Position) (DecapConfirm, error) {
	if svc == nil {
		return DecapConfirm{}, ErrUnknownSigner
	}
	return svc.DecapPacket(received, now, position)
}
