// Command cli uploads a file to a gallerist server and prints the asset
// reference to attach to a post. With -s it mints a development token for
// the user given by -u.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gallerist/internal/client"
	"github.com/dmitrijs2005/gallerist/internal/netx"
	"github.com/dmitrijs2005/gallerist/internal/server/auth"
)

func main() {
	addr := flag.String("a", "http://127.0.0.1:8080", "server base URL")
	token := flag.String("t", "", "bearer token")
	secret := flag.String("s", "", "JWT secret to mint a development token")
	user := flag.String("u", "", "user id for the minted token")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cli [-a url] [-t token | -s secret -u user] FILE")
		os.Exit(2)
	}

	if *token == "" && *secret != "" {
		minted, err := auth.GenerateToken(*user, []byte(*secret), time.Hour)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		*token = minted
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	up, err := client.New(*addr, *token, nil).UploadFile(ctx, flag.Arg(0), data)
	var rejected *netx.CapabilityError
	if errors.As(err, &rejected) && rejected.Rejected() {
		log.Fatalf("upload: store refused the capability, it expired or the content type changed: %v", err)
	}
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	fmt.Println(up.Reference)
}
