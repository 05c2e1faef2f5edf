package mossgarden

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/sasha-s/go-deadlock"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var currentWallet Wallet
var currentWalletMutex = &deadlock.Mutex{}

// MyWallet returns the current Wallet or creates a new one if there isn't one already
func MyWallet() Wallet {
	currentWalletMutex.Lock()
	defer currentWalletMutex.Unlock()
	if len(currentWallet.PrivateKey) == 0 {
		//try to restore wallet from disk
		if w, ok := getWalletFromDisk(); ok {
			currentWallet = w
		} else {
			LogCLI("Generating a new wallet, write down the seed words if you want to keep it", 4)
			w, err := makeNewWallet()
			if err != nil {
				LogCLI(err.Error(), 1)
				return currentWallet
			}
			currentWallet = w
			fmt.Printf("\n\n~NEW WALLET~\nPublic Key: %s\nSeed Words: %s\n\n", currentWallet.Account, currentWallet.SeedWords)
			if err := persistCurrentWallet(); err != nil {
				LogCLI(err.Error(), 2)
			}
		}
	}
	return currentWallet
}

// UseWallet replaces the current wallet, it does not persist it.
func UseWallet(w Wallet) {
	currentWalletMutex.Lock()
	defer currentWalletMutex.Unlock()
	currentWallet = w
}

func makeNewWallet() (Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return Wallet{}, err
	}
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return Wallet{}, err
	}
	account, err := PubKey(sk)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    account,
	}, nil
}

func walletPath() string {
	return MakeOrGetConfig().GetString("rootDir") + "wallet.dat"
}

func persistCurrentWallet() error {
	b, err := json.Marshal(currentWallet)
	if err != nil {
		return err
	}
	return os.WriteFile(walletPath(), b, 0600)
}

func getWalletFromDisk() (w Wallet, ok bool) {
	file, err := os.ReadFile(walletPath())
	if err != nil {
		LogCLI(fmt.Sprintf("Error getting wallet file: %s", err.Error()), 3)
		return Wallet{}, false
	}
	err = json.Unmarshal(file, &w)
	if err != nil {
		LogCLI(fmt.Sprintf("Error parsing wallet file: %s", err.Error()), 3)
		return Wallet{}, false
	}
	return w, len(w.PrivateKey) > 0
}
