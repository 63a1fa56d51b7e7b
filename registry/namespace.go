package registry

import "strings"

/*
Converts between absolute store paths and root-relative keys.
*/
type namespace struct {
	rootPath string
}

func newNamespace(rootPath string) (namespace, error) {
	if rootPath == "" {
		return namespace{}, ErrMissingRootPath
	}

	if !strings.HasPrefix(rootPath, "/") {
		rootPath = "/" + rootPath
	}
	rootPath = strings.TrimSuffix(rootPath, "/")

	return namespace{rootPath: rootPath}, nil
}

//Prefix under which all the registry's keys live
func (ns namespace) prefix() string {
	return ns.rootPath + "/"
}

func (ns namespace) relativeKey(path string) string {
	return strings.TrimPrefix(path, ns.prefix())
}

func (ns namespace) absoluteKey(key string) string {
	return ns.prefix() + key
}
