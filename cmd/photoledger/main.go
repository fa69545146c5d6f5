// Команда photoledger: конвертация HEIC -> JPEG с журналом, сверкой и архивом.
package main

import "github.com/artemshloyda/photoledger/internal/cli"

func main() {
	cli.Execute()
}
