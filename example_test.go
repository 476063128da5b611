package nftsaga_test

import (
	"context"
	"fmt"
	"os"

	"github.com/vitwit/nftsaga"
	"github.com/vitwit/nftsaga/internal/simtest"
)

func Example() {
	net, err := simtest.New()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer net.Close()

	p, err := nftsaga.New(net.Client, nftsaga.DefaultParams(),
		nftsaga.WithBytecodeSource(nftsaga.StaticBytecode(simtest.Bytecode)),
		nftsaga.WithProgress(os.Stdout),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	result, err := p.Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(len(result.Completed), "steps completed")

	// Output:
	// The new account ID is: 0.0.1001
	// Contract created with ID: 0.0.1002
	// Token created with ID: 0.0.1003
	// Minted NFT with serial: 1
	// Transfer status: SUCCESS
	// 5 steps completed
}

func ExamplePipeline_ProvisionAccount() {
	net, err := simtest.New()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer net.Close()

	p, err := nftsaga.New(net.Client, nftsaga.DefaultParams())
	if err != nil {
		fmt.Println(err)
		return
	}

	account, err := p.ProvisionAccount(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(account.ID, account.KeyPair.Private)

	// Output:
	// 0.0.1001 <redacted>
}
