//go:build !windows

package nativemsg

func registryManifestPath(browser Browser, hostName string) (string, error) {
	return "", nil
}
