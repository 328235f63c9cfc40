/*
Copyright 2025 The Kubeflow authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kdc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/types"
	"github.com/sethvargo/go-password/password"
)

const (
	passwordLength  = 32
	passwordDigits  = 8
	passwordSymbols = 0
	keyVersion      = 1
)

// keytabEncryptionTypes are the encryption types written for every principal.
var keytabEncryptionTypes = []int32{
	etypeID.AES256_CTS_HMAC_SHA1_96,
	etypeID.AES128_CTS_HMAC_SHA1_96,
}

// Credential is a principal and the password it is registered with.
type Credential struct {
	Principal string
	Password  string
}

// KeySet holds the generated credentials of a realm in registration order.
type KeySet struct {
	credentials []Credential
}

// GenerateKeySet creates a random password for every principal.
func GenerateKeySet(principals []string) (*KeySet, error) {
	if len(principals) == 0 {
		return nil, fmt.Errorf("no principals registered")
	}
	keys := &KeySet{credentials: make([]Credential, 0, len(principals))}
	for _, principal := range principals {
		pw, err := password.Generate(passwordLength, passwordDigits, passwordSymbols, false, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate password for %s: %v", principal, err)
		}
		keys.credentials = append(keys.credentials, Credential{Principal: principal, Password: pw})
	}
	return keys, nil
}

// Credentials returns a copy of the generated credentials.
func (k *KeySet) Credentials() []Credential {
	return append([]Credential(nil), k.credentials...)
}

// Keytab encodes every credential into a single keytab.
func (k *KeySet) Keytab(timestamp time.Time) ([]byte, error) {
	kt := keytab.New()
	for _, cred := range k.credentials {
		name, realm := types.ParseSPNString(cred.Principal)
		for _, etype := range keytabEncryptionTypes {
			if err := kt.AddEntry(name.PrincipalNameString(), realm, cred.Password, timestamp, keyVersion, etype); err != nil {
				return nil, fmt.Errorf("failed to add keytab entry for %s: %v", cred.Principal, err)
			}
		}
	}
	data, err := kt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keytab: %v", err)
	}
	return data, nil
}

// Bootstrap renders the "principal password" lines the KDC container reads
// on start to create its principals.
func (k *KeySet) Bootstrap() []byte {
	var buf bytes.Buffer
	for _, cred := range k.credentials {
		fmt.Fprintf(&buf, "%s %s\n", cred.Principal, cred.Password)
	}
	return buf.Bytes()
}
