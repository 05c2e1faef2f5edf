package main

import (
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/eiannone/keyboard"

	"mossgarden/consensus/genomes"
	"mossgarden/consensus/ledger"
	"mossgarden/consensus/sequence"
	"mossgarden/consensus/stones"
	"mossgarden/messaging/nostrelay"
	"mossgarden/mossgarden"
)

// cliListener is a cheap and nasty way to speed up development cycles. It listens for keypresses and executes commands.
func cliListener(interrupt chan struct{}) {
	fmt.Println("Press:\nq: to quit\ns: to print stones\ng: to print genomes\nb: to print balances\nw: to print your current wallet\nSee cliListener.go for more")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			mossgarden.LogCLI(err.Error(), 1)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to any test procedures. See main.cliListener for more details.")
		case "q":
			mossgarden.LogCLI("User requested to terminate", 4)
			mossgarden.Shutdown()
			return //if we do not return here, we cannot ctrl+c in case of errors during shutdown
		case "s":
			for _, st := range stones.All() {
				spew.Dump(st)
			}
		case "g":
			for _, g := range genomes.All() {
				fmt.Println(g.Describe())
			}
		case "b":
			for _, b := range ledger.AllBalances() {
				fmt.Printf("%s: %d (minted %d, spent %d)\n", b.Account, b.Tokens, b.Minted, b.Spent)
			}
		case "w":
			w := mossgarden.MyWallet()
			fmt.Printf("\nWallet:\n%s\nBalance: %d\n", w.Account, ledger.GetBalance(w.Account))
		case "K":
			m := mossgarden.GetAllKinds()
			var kinds []int64
			for kind := range m {
				kinds = append(kinds, kind)
			}
			sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
			for _, kind := range kinds {
				fmt.Printf("Kind: %d Mind: %s\n", kind, m[kind])
			}
		case "l":
			// lock the oldest stone (debug)
			if all := stones.All(); len(all) > 0 {
				st, err := stones.Lock(all[0].ID)
				if err != nil {
					mossgarden.LogCLI(err.Error(), 2)
					break
				}
				fmt.Println(spew.Sdump(st))
			}
		case "h":
			fmt.Printf("genomes: %s\nstones: %s\nledger: %s\n", genomes.HashOfCurrentState(), stones.HashOfCurrentState(), ledger.Current().HashOfCurrentState())
			for _, seq := range sequence.AllSequences() {
				fmt.Printf("%s: %d\n", seq.Account, seq.Sequence)
			}
		case "r":
			mossgarden.LogCLI("Republishing every cached event", 4)
			go nostrelay.RepublishEverything()
		case "u":
			for _, st := range stones.All() {
				if st.State == stones.Locked {
					if _, err := stones.Unlock(st.ID); err != nil {
						mossgarden.LogCLI(err.Error(), 2)
					}
					fmt.Println("unlocked " + st.ID)
				}
			}
		}
	}
}
