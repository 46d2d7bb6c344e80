package main

import "errors"

var errPrerequisites = errors.New("prerequisites missing")
