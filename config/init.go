package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// reading config error is fatal, and exits main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(cfg *Configuration) {
	f, err := os.Open("config.yml")
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		processError(err)
	}
}

func readEnv(cfg *Configuration) {
	err := envconfig.Process("", cfg)
	if err != nil {
		processError(err)
	}
}

// Signer is a per-network signing credential. Networks without one are
// registered read-only.
type Signer struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// Registry is the immutable view of networks and signing credentials handed
// to every component at startup. No mutation API after Init.
type Registry struct {
	mechanism types.Mechanism
	networks  map[int]NetworkConfig
	signers   map[int]Signer
}

func (r *Registry) Mechanism() types.Mechanism { return r.mechanism }

// Resolve returns the configuration for a network id.
func (r *Registry) Resolve(chainID int) (NetworkConfig, bool) {
	n, ok := r.networks[chainID]
	return n, ok
}

// Signer returns the signing credential for a network, if one is configured.
func (r *Registry) Signer(chainID int) (Signer, bool) {
	s, ok := r.signers[chainID]
	return s, ok
}

// Sources lists chain ids the relay polls under the active mechanism.
func (r *Registry) Sources() []int {
	var ids []int
	for id, n := range r.networks {
		if n.IsSource(r.mechanism) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Networks returns all registered network configurations keyed by chain id.
func (r *Registry) Networks() map[int]NetworkConfig {
	return r.networks
}

// NewRegistry builds a registry directly from already-validated parts.
// Init is the config-file path used by the server binary.
func NewRegistry(mechanism types.Mechanism, networks map[int]NetworkConfig, signers map[int]Signer) *Registry {
	if signers == nil {
		signers = map[int]Signer{}
	}
	return &Registry{
		mechanism: mechanism,
		networks:  networks,
		signers:   signers,
	}
}

func Init() *Registry {
	readFile(&Config)
	readEnv(&Config)

	mechanism := types.Mechanism(Config.Mechanism)
	if !mechanism.Valid() {
		processError(fmt.Errorf("unknown bridge mechanism %q", Config.Mechanism))
	}

	networks := make(map[int]NetworkConfig, len(Networks))
	for id, n := range Networks {
		networks[id] = n
	}
	for id, n := range Config.Networks {
		if n.ChainID == 0 {
			n.ChainID = id
		}
		networks[id] = n
	}

	signers := make(map[int]Signer, len(Config.Signers))
	for id, hexkey := range Config.Signers {
		key, err := crypto.HexToECDSA(hexkey)
		if err != nil {
			processError(fmt.Errorf("invalid private key for chain %d: %v", id, err))
		}
		signers[id] = Signer{
			Key:     key,
			Address: crypto.PubkeyToAddress(key.PublicKey),
		}
	}

	reg := NewRegistry(mechanism, networks, signers)

	// a network claiming a role without the contract addresses that role
	// needs is a deployment mistake, refuse to start
	for id, n := range networks {
		if len(n.RPCList) == 0 {
			processError(fmt.Errorf("network %d (%s) has no RPC endpoints", id, n.Name))
		}
		if mechanism == types.MechanismLockRelease && n.IsSource(mechanism) && len(n.Tokens) == 0 {
			processError(fmt.Errorf("network %d (%s) watches lock-release contracts but has no token table", id, n.Name))
		}
		if _, hasSigner := signers[id]; hasSigner && !n.IsDestination(mechanism) {
			processError(fmt.Errorf("network %d (%s) has a signer but no release contract for mechanism %s", id, n.Name, mechanism))
		}
	}

	if len(reg.Sources()) == 0 {
		processError(fmt.Errorf("no source networks configured for mechanism %s", mechanism))
	}

	return reg
}
