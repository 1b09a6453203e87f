// Command nicsim simulates a Corundum NIC attached to a scripted host.
package main

func main() {
	Execute()
}
