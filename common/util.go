package common

import "os"

func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Remove deletes a file created by a test or the driver. Missing files are not an error.
func Remove(name string) {
	_ = os.Remove(name)
}
