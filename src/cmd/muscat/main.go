// Command muscat indexes a music collection into a relational catalog and
// serves virtualized browse/search queries against it.
package main

func main() {
	execute()
}
