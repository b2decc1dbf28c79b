package publish

import "github.com/ethereum/go-ethereum/common/hexutil"

func decodeHexSignature(sig string) ([]byte, error) {
	return hexutil.Decode(sig)
}
