package packager

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// KeySet protects one encrypted job. Values are 32 hex characters.
type KeySet struct {
	KeyID string
	Key   string
	CEK   string
}

func GenerateKeySet(r io.Reader) (KeySet, error) {
	var out [3]string
	for i := range out {
		b := make([]byte, 16)
		if _, err := io.ReadFull(r, b); err != nil {
			return KeySet{}, fmt.Errorf("unable to generate key: %w", err)
		}
		out[i] = hex.EncodeToString(b)
	}

	return KeySet{KeyID: out[0], Key: out[1], CEK: out[2]}, nil
}

func (k KeySet) Validate() error {
	for name, v := range map[string]string{"KEY": k.Key, "KID": k.KeyID, "CEK": k.CEK} {
		b, err := hex.DecodeString(v)
		if err != nil || len(b) != 16 {
			return fmt.Errorf("%s must be 16 hex encoded bytes", name)
		}
	}
	return nil
}

// WriteKeyFile stores the key set in the escrow format KEY=, KID=, CEK=.
func WriteKeyFile(path string, k KeySet) error {
	content := fmt.Sprintf("KEY=%s\nKID=%s\nCEK=%s\n", k.Key, k.KeyID, k.CEK)
	return os.WriteFile(path, []byte(content), 0600)
}

func ReadKeyFile(path string) (KeySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return KeySet{}, err
	}
	defer f.Close()

	var k KeySet
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}

		switch name {
		case "KEY":
			k.Key = value
		case "KID":
			k.KeyID = value
		case "CEK":
			k.CEK = value
		}
	}
	if err := scanner.Err(); err != nil {
		return KeySet{}, err
	}

	return k, k.Validate()
}
