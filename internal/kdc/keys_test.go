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
	"strings"
	"testing"
	"time"

	"github.com/jcmturner/gokrb5/v8/iana/etypeID"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeySet(t *testing.T) {
	keys, err := GenerateKeySet(testPrincipals)
	require.NoError(t, err)

	creds := keys.Credentials()
	require.Len(t, creds, 2)
	assert.Equal(t, testPrincipals[0], creds[0].Principal)
	assert.Len(t, creds[0].Password, passwordLength)
	assert.NotEqual(t, creds[0].Password, creds[1].Password)
}

func TestGenerateKeySetRequiresPrincipals(t *testing.T) {
	_, err := GenerateKeySet(nil)
	assert.Error(t, err)
}

func TestKeySetKeytab(t *testing.T) {
	keys, err := GenerateKeySet(testPrincipals)
	require.NoError(t, err)

	data, err := keys.Keytab(time.Now())
	require.NoError(t, err)

	kt := keytab.New()
	require.NoError(t, kt.Unmarshal(data))
	for _, principal := range testPrincipals {
		name, realm := types.ParseSPNString(principal)
		_, kvno, err := kt.GetEncryptionKey(name, realm, 0, etypeID.AES256_CTS_HMAC_SHA1_96)
		require.NoError(t, err, principal)
		assert.Equal(t, keyVersion, kvno)
	}
}

func TestKeySetBootstrap(t *testing.T) {
	keys, err := GenerateKeySet([]string{"client@LOCAL"})
	require.NoError(t, err)

	line := strings.TrimSuffix(string(keys.Bootstrap()), "\n")
	fields := strings.Fields(line)
	require.Len(t, fields, 2)
	assert.Equal(t, "client@LOCAL", fields[0])
	assert.Equal(t, keys.Credentials()[0].Password, fields[1])
}
