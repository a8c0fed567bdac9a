// Command genpass hashes a password for the credentials file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"budget/internal/auth"
)

func main() {
	password := flag.String("password", "", "password to hash (read from stdin when empty)")
	flag.Parse()

	pw := *password
	if pw == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "read password:", err)
			os.Exit(1)
		}
		pw = strings.TrimRight(line, "\r\n")
	}
	if pw == "" {
		fmt.Fprintln(os.Stderr, "password must not be empty")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(pw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
