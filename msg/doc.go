/*
The package msg decodes ISO8583 financial messages given as hex text into the message type indicator,
the bitmap and the values of all present fields. This implementation is based on:
  [ISO]  ISO 8583-1:2003 Financial transaction card originated messages
  [EMV]  EMV Book 3 V4.3, Annex B (data object coding)

The decoder walks the hex text character by character, one character is one nibble of the message.
The length of each field is taken from a dict.Dictionary; fields that carry private sub-fields or
EMV chip data are further split by the decoders of the private package.

Abbreviations:
MTI: Message Type Indicator
BCD: Binary Coded Decimal
TPDU: Transport Protocol Data Unit
LLVAR: variable length field with a two digit length prefix

Restrictions:
Messages are only decoded, building messages is not supported.

*/
package msg
