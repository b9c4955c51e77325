/*
Copyright 2021 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import "fmt"

// InvalidDistributionError is returned when a parameter names a distribution family that is not supported.
type InvalidDistributionError struct {
	// The qualified name of the offending parameter
	Parameter string
	// The distribution name as it appeared in the sweep description
	Distribution string
}

func (e *InvalidDistributionError) Error() string {
	return fmt.Sprintf("invalid distribution %q for parameter %q", e.Distribution, e.Parameter)
}

// MalformedParameterSpaceError is returned when a parameter space description cannot be used to
// construct a space (e.g. it has neither values nor a distribution).
type MalformedParameterSpaceError struct {
	// The qualified name of the offending parameter
	Parameter string
	// A human readable reason the space is malformed
	Reason string
}

func (e *MalformedParameterSpaceError) Error() string {
	return fmt.Sprintf("malformed parameter space %q: %s", e.Parameter, e.Reason)
}

func malformed(name, format string, args ...interface{}) error {
	return &MalformedParameterSpaceError{Parameter: name, Reason: fmt.Sprintf(format, args...)}
}
