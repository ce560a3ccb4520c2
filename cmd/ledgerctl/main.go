// Command ledgerctl renders the ledger reports from the command line.
package main

func main() {
	Execute()
}
