// Command orgctl loads catalog files into the configured database and
// previews grade notations from the command line.
package main

func main() {
	execute()
}
