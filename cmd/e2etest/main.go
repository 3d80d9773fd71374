package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/utt-core/api/client"
	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/service"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/util"
	"github.com/vocdoni/utt-core/validator"
)

func main() {
	nBurns := flag.Int("burns", 10, "number of coins to issue and burn")
	maxValue := flag.Int("maxValue", 1000, "maximum coin value")
	timeout := flag.Duration("timeout", 2*time.Minute, "time to wait for the burns to be validated")
	flag.Parse()
	log.Init("debug", "stdout", nil)

	// authorities
	params, err := utt.NewParams()
	if err != nil {
		log.Fatal(err)
	}
	bank, err := utt.GenerateBankKey()
	if err != nil {
		log.Fatal(err)
	}
	reg, err := utt.GenerateRegAuth()
	if err != nil {
		log.Fatal(err)
	}
	auth := &service.Authorities{Params: params, BankPK: bank.PublicKey(), RegPK: reg.PublicKey()}

	// create storage in memory
	stg, err := storage.New(memdb.New())
	if err != nil {
		log.Fatal(err)
	}
	defer stg.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vs, err := service.NewValidator(stg, auth, validator.Config{})
	if err != nil {
		log.Fatal(err)
	}
	if err := vs.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer vs.Stop()

	// start API service
	api := service.NewAPI(stg, auth, "127.0.0.1", 0)
	if err := api.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer api.Stop()
	host, port := api.HostPort()

	cli, err := client.New(fmt.Sprintf("http://%s:%d", host, port))
	if err != nil {
		log.Fatal(err)
	}
	cli.SetCorrelationID("e2etest-" + util.RandomHex(4))
	nodeParams, bankPK, regPK, err := cli.Keys()
	if err != nil {
		log.Fatal(err)
	}

	// issue coins and submit their burns
	start := time.Now()
	type submitted struct {
		hash  string
		value uint64
		ask   *utt.AddrSK
		coin  *utt.Coin
	}
	var burns []submitted
	var total uint64
	for i := 0; i < *nBurns; i++ {
		pid := fmt.Sprintf("user-%d", i)
		ask, err := reg.Register(pid)
		if err != nil {
			log.Fatal(err)
		}
		sn, err := utt.NewRandomSerial()
		if err != nil {
			log.Fatal(err)
		}
		value := util.RandomUint64(uint64(*maxValue) + 1)
		coin, err := utt.IssueCoin(bank, pid, sn, value)
		if err != nil {
			log.Fatal(err)
		}
		burn, err := utt.NewBurnOp(nodeParams, ask, coin, bankPK, regPK)
		if err != nil {
			log.Fatal(err)
		}
		res, err := cli.SubmitBurn(burn)
		if err != nil {
			log.Fatal(err)
		}
		burns = append(burns, submitted{hash: res.Hash, value: value, ask: ask, coin: coin})
		total += value
	}
	log.Infow("burns submitted", "count", len(burns), "total", total, "duration", time.Since(start).String())

	// wait for the validator
	deadline := time.Now().Add(*timeout)
	var burned uint64
	for _, b := range burns {
		for {
			status, err := cli.BurnStatus(b.hash)
			if err != nil {
				log.Fatal(err)
			}
			if status.Status == storage.BurnStatusAccepted {
				burned += status.Value
				break
			}
			if status.Status == storage.BurnStatusRejected {
				log.Fatalf("burn %s rejected: %s", b.hash, status.Reason)
			}
			if time.Now().After(deadline) {
				log.Fatalf("timeout waiting for burn %s", b.hash)
			}
			time.Sleep(200 * time.Millisecond)
		}
	}
	if burned != total {
		log.Fatalf("burned value %d does not match issued value %d", burned, total)
	}
	log.Infow("all burns accepted", "total", burned, "duration", time.Since(start).String())

	// a second burn of a spent coin must be refused
	if len(burns) > 0 {
		again, err := utt.NewBurnOp(nodeParams, burns[0].ask, burns[0].coin, bankPK, regPK)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := cli.SubmitBurn(again); err == nil {
			log.Fatalf("double spend accepted")
		} else {
			log.Infow("double spend refused", "error", err.Error())
		}
	}

	root, err := cli.NullifierRoot()
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("e2e test finished", "nullifierRoot", root.String())
}
