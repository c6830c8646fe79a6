// Package districtregistry owns electoral districts. Creating a district
// provisions its voter pool at the signer and its anonymous voter handles.
package districtregistry
